package meta

// URLSummary is a short description of one URL group of a capture.
type URLSummary struct {
	Type  string   `json:"_type"`
	URLs  []string `json:"urls"`
	Text  string   `json:"text,omitempty"`
	Title string   `json:"title,omitempty"`
}

const urlSummaryTextLimit = 72

// MapToURLs summarizes link, image and page URLs of m.
func MapToURLs(m *Meta) []URLSummary {
	var result []URLSummary
	if urls := ValidURLs(m.Get("linkUrl")); len(urls) > 0 {
		link := URLSummary{Type: "Link", URLs: urls}
		link.Text = TruncateRunes(FirstText(m.Get("linkText")), urlSummaryTextLimit)
		result = append(result, link)
	}
	if urls := ValidURLs(m.Get("srcUrl")); len(urls) > 0 {
		image := URLSummary{Type: "Image", URLs: urls}
		image.Text = TruncateRunes(FirstText(m.Get("imageAlt"), m.Get("imageTitle")), urlSummaryTextLimit)
		result = append(result, image)
	}
	if urls := ValidURLs(m.Get("url")); len(urls) > 0 {
		frame := URLSummary{Type: "Frame", URLs: urls}
		frame.Title = TruncateRunes(
			FirstText(m.Descriptors("title", "tab.title"), m.Get("title")), urlSummaryTextLimit)
		result = append(result, frame)
	}
	return result
}
