package schemaorg

import (
	"strings"

	"github.com/dtnitsch/org-remark/pkg/meta"
)

// EntityProduct is the entity type attached to a page by the Product handler.
const EntityProduct = "Product"

// ProductPrimaryProperties are entity properties that make a page a
// product page. Without any of them the entity is dropped.
var ProductPrimaryProperties = []string{"brand", "model", "price", "offer", "availability", "aggregateRating"}

// ProductSecondaryProperties are counted by schema_orgSecondaryScore. The
// entity holds generic properties, the page holds titles.
var ProductSecondaryProperties = []string{"genericProperty", "title"}

// productPropertyFields are listed in captures under their own names.
var productPropertyFields = []string{
	"manufacturer",
	"size", "color", "pattern", "material",
	"itemCondition",
	"width", "height", "depth", "weight",
	"countryOfOrigin", "countryOfAssembly",
	"productionDate", "releaseDate",
	"category", "sku", "productID", "gtin",
}

var offerMapping = []fieldMapping{
	{"price", "price"},
	{"availability", "availability"},
	{"name", "offerName"},
	{"url", "url"},
}

// handlePrimaryProduct merges generic Thing fields into the page and
// everything specific to the product into a separate entity store.
func handlePrimaryProduct(u *Unifier, n Node, m *meta.Meta, p Props) bool {
	handlePrimaryThing(u, n, m, p)

	entity := m.Derive()
	plain := nonRecursive(p)
	u.setProperty(n, "brand", entity, "brand", recursive(p))
	u.setProperty(n, "model", entity, "model", recursive(p))
	for _, field := range productPropertyFields {
		fp := plain
		fp.Attrs = map[string]any{"name": field}
		u.setProperty(n, field, entity, "genericProperty", fp)
	}
	u.mergeOffers(n, entity, p)

	ap := recursive(p)
	ap.Handler = handlePropertyValueProperty
	u.setProperty(n, "additionalProperty", entity, "genericProperty", ap)
	u.setProperty(n, "aggregateRating", entity, "aggregateRating", recursive(p))

	primary := 0
	for _, property := range ProductPrimaryProperties {
		primary += len(entity.Get(property))
	}
	secondary := 0
	for _, property := range ProductSecondaryProperties {
		secondary += len(entity.Get(property)) + len(m.Get(property))
	}
	if primary == 0 {
		return false
	}
	key := p.Key.String()
	entity.AddDescriptor("schema_orgPrimaryScore", &meta.Descriptor{Value: float64(primary), Key: key})
	entity.AddDescriptor("schema_orgSecondaryScore", &meta.Descriptor{Value: float64(secondary), Key: key})
	m.SetEntity(EntityProduct, entity)
	return true
}

func (u *Unifier) mergeOffers(n Node, entity *meta.Meta, p Props) {
	offer := n["offer"]
	if offer == nil {
		offer = n["offers"]
	}
	offer = p.graph.byID(offer)
	if list, ok := offer.([]any); ok && len(list) == 1 && list[0] != nil {
		offer = p.graph.byID(list[0])
	}
	if single, ok := offer.(Node); ok {
		if s := u.offerStruct(single); s != nil {
			plain := nonRecursive(p)
			for _, f := range offerMapping {
				u.setProperty(s, f.field, entity, f.property, plain)
			}
		}
		// An AggregateOffer may list particular offers.
		offer = single["offer"]
		if offer == nil {
			offer = single["offers"]
		}
	}
	list, ok := offer.([]any)
	if !ok {
		return
	}
	key := p.Key.With("offer").String()
	for _, item := range list {
		if s := u.offerStruct(p.graph.byID(item)); s != nil {
			entity.AddNonEmpty("offer", &meta.Descriptor{Value: map[string]any(s), Key: key})
		}
	}
}

// offerStruct reduces an Offer or AggregateOffer to the fields shown in
// a capture. It returns nil when nothing useful is left.
func (u *Unifier) offerStruct(v any) Node {
	n, ok := v.(Node)
	if !ok {
		return nil
	}
	if typ := nodeType(n); typ != "Offer" && typ != "AggregateOffer" {
		return nil
	}
	result := Node{}
	if price := u.offerPrice(n); price != "" {
		result["price"] = price
	}
	if availability, ok := n["availability"].(string); ok && availability != "" {
		result["availability"] = StripSchemaOrg(availability)
	}
	for _, field := range []string{"url", "name"} {
		if s, ok := n[field].(string); ok && s != "" {
			result[field] = s
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// offerPrice formats price, a lowPrice-highPrice range and offerCount,
// e.g. "$10.00/20-30(3)". Zero prices are treated as unknown.
func (u *Unifier) offerPrice(n Node) string {
	raw := meta.ValueString
	format := raw
	if code, _ := n["priceCurrency"].(string); code != "" {
		format = func(x any) string {
			if s, ok := u.prices.Format(x, code); ok {
				return s
			}
			return meta.ValueString(x) + " " + code
		}
	}

	price := ""
	if v := n["price"]; truthy(v) && v != "0" {
		price = format(v)
	}
	var bounds []string
	for _, field := range []string{"lowPrice", "highPrice"} {
		v := n[field]
		if !truthy(v) || v == "0" {
			continue
		}
		if price != "" {
			bounds = append(bounds, raw(v))
		} else {
			bounds = append(bounds, format(v))
		}
	}
	if r := strings.Join(bounds, "-"); r != "" {
		if price != "" {
			price += "/" + r
		} else {
			price = r
		}
	}
	if count := n["offerCount"]; price != "" && truthy(count) && meta.ValueString(count) != "1" {
		price += "(" + meta.ValueString(count) + ")"
	}
	return price
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case bool:
		return t
	}
	return true
}
