package orgtree

import (
	"github.com/dtnitsch/org-remark/pkg/meta"
	"github.com/dtnitsch/org-remark/pkg/orgbuf"
)

// Link renders an Org link. Href falls back to the descriptor value. A
// descriptor carrying an error is rendered as annotated text instead of a
// link. Without a description the readable form of the URL, shortened to
// LengthLimit characters, is used.
type Link struct {
	Href        string
	Descriptor  *meta.Descriptor
	LengthLimit int
	Description []any
}

// Render implements Node.
func (l Link) Render(w Writer) {
	href := l.Href
	if href == "" && l.Descriptor != nil {
		href = l.Descriptor.String()
	}
	if href == "" {
		w.Logger().Warn("org link: no href")
		Walk(w, l.Description)
		return
	}
	if l.Descriptor != nil && l.Descriptor.Error != nil {
		Walk(w, Container{
			"(" + meta.ErrorText(l.Descriptor.Error) + "!)", orgbuf.WordSeparator,
			href, orgbuf.WordSeparator, l.Description,
		})
		return
	}

	safe, err := orgbuf.SafeURL(href)
	if err != nil {
		w.Logger().Warn("org link: invalid URL", "href", href, "error", err)
		if l.LengthLimit > 0 {
			href = meta.TruncateRunes(href, l.LengthLimit)
		}
		Walk(w, Nobreak{"(!)", orgbuf.WordSeparator, href, orgbuf.WordSeparator, l.Description})
		return
	}
	if len(l.Description) == 0 {
		readable := orgbuf.ReadableURL(href, l.LengthLimit)
		if readable == safe {
			Walk(w, Nobreak{orgbuf.Markup("[[" + safe + "]]")})
		} else {
			Walk(w, Nobreak{orgbuf.Markup("[[" + safe + "][" + readable + "]]")})
		}
		return
	}
	Walk(w, Nobreak{
		orgbuf.Markup("[[" + safe + "]["),
		l.Description,
		orgbuf.Markup("]]"),
	})
}
