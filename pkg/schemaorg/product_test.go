package schemaorg

import (
	"testing"

	"github.com/dtnitsch/org-remark/pkg/meta"
)

const caseWithAggregateRatingOffer = `{
	"@type": "Product",
	"image": "file:///home/user/test/html/meta/useful-fing.jpg",
	"name": "Vunder SpecialProduct 5X useful thing",
	"aggregateRating": {"@type": "AggregateRating", "ratingValue": "87", "bestRating": "100", "ratingCount": "24"},
	"offers": {
		"@type": "AggregateOffer",
		"lowPrice": "$1250",
		"highPrice": "$1495",
		"offerCount": "8",
		"offers": [
			{"@type": "Offer", "url": "https://save-a-lot-things.com/useful-1.html"},
			{"@type": "Offer", "url": "https://thing-gadgets.com/useful-2.html"}
		]
	}
}`

const caseWithBrandAndCurrency = `{
	"@context": "http://schema.org",
	"@type": "Product",
	"aggregateRating": {"@type": "AggregateRating", "ratingValue": "5.0", "reviewCount": "1"},
	"brand": "BrightPack",
	"description": "Wonderful backpack for hiking.",
	"image": "https://cdn1.kilathlone.buy/s3/multimedia-q/987654321.jpg",
	"name": "Backpack BrightPack v5 dark white 99 l",
	"offers": {
		"@type": "Offer",
		"url": "https://www.kilathlone.buy/product/backpack-hiking-brightpack-v5-123456/",
		"availability": "http://schema.org/OutOfStock",
		"price": "3450",
		"priceCurrency": "CUR"
	},
	"sku": "123456"
}`

const caseWithZeroPrice = `{
	"@context": "http://schema.org",
	"@type": "Product",
	"name": "Just Hole",
	"offers": {
		"@type": "Offer",
		"url": "https://trash.buy/product/just-hole-234/",
		"availability": "http://schema.org/OutOfStock",
		"price": "0",
		"priceCurrency": "CUR"
	}
}`

func mergeProduct(t *testing.T, fixture string) (*meta.Meta, *meta.Meta) {
	t.Helper()
	u := NewUnifier(testLogger(), "en-US")
	m := meta.New(meta.WithLogger(testLogger()))
	m.AddDescriptor("schema_org", &meta.Descriptor{Value: decode(t, fixture), Key: "microdata"})
	u.MergeSchemaOrg(m)
	typ, entity := m.Entity()
	if typ != EntityProduct || entity == nil {
		t.Fatalf("entity = %q, %v; want Product", typ, entity)
	}
	return m, entity
}

func TestProduct_AggregateOffer(t *testing.T) {
	m, entity := mergeProduct(t, caseWithAggregateRatingOffer)

	assertValues(t, m, "title", "Vunder SpecialProduct 5X useful thing")
	assertValues(t, m, "image", "file:///home/user/test/html/meta/useful-fing.jpg")
	assertValues(t, entity, "price", "$1250-$1495(8)")
	assertValues(t, entity, "aggregateRating", "87/100(0; 24)")
	assertValues(t, entity, "url")

	offers := entity.Get("offer")
	if len(offers) != 2 {
		t.Fatalf("offers = %d, want 2", len(offers))
	}
	first, ok := offers[0].Value.(map[string]any)
	if !ok || first["url"] != "https://save-a-lot-things.com/useful-1.html" {
		t.Errorf("first offer = %v", offers[0].Value)
	}
	if got := entity.StringValue("price", "microdata.Product.price"); got != "$1250-$1495(8)" {
		t.Errorf("price by key = %q", got)
	}
}

func TestProduct_BrandAndCurrency(t *testing.T) {
	m, entity := mergeProduct(t, caseWithBrandAndCurrency)

	assertValues(t, m, "title", "Backpack BrightPack v5 dark white 99 l")
	assertValues(t, m, "description", "Wonderful backpack for hiking.")
	assertValues(t, entity, "brand", "BrightPack")
	assertValues(t, entity, "price", "CUR\u00a03,450.00")
	assertValues(t, entity, "availability", "OutOfStock")
	assertValues(t, entity, "aggregateRating", "5.0(1)")
	assertValues(t, entity, "url", "https://www.kilathlone.buy/product/backpack-hiking-brightpack-v5-123456/")

	generic := entity.Get("genericProperty")
	if len(generic) != 1 || generic[0].Value != "123456" || generic[0].Attr("name") != "sku" {
		t.Errorf("genericProperty = %+v, want sku 123456", generic)
	}
	if got := meta.FirstValue(entity.Get("schema_orgPrimaryScore")); got != 4.0 {
		t.Errorf("primary score = %v, want 4", got)
	}
	if got := meta.FirstValue(entity.Get("schema_orgSecondaryScore")); got != 2.0 {
		t.Errorf("secondary score = %v, want 2", got)
	}
}

func TestProduct_ZeroPrice(t *testing.T) {
	_, entity := mergeProduct(t, caseWithZeroPrice)

	assertValues(t, entity, "price")
	assertValues(t, entity, "availability", "OutOfStock")
	assertValues(t, entity, "url", "https://trash.buy/product/just-hole-234/")
}

func TestProduct_WithoutPrimaryProperties(t *testing.T) {
	u := NewUnifier(testLogger(), "en-US")
	m := meta.New(meta.WithLogger(testLogger()))
	m.AddDescriptor("schema_org", &meta.Descriptor{
		Value: decode(t, `{"@type": "Product", "name": "Bare", "sku": "1"}`),
		Key:   "microdata",
	})
	u.MergeSchemaOrg(m)

	if typ, entity := m.Entity(); entity != nil {
		t.Errorf("entity = %q, want none", typ)
	}
	assertValues(t, m, "title", "Bare")
}

func TestProduct_AdditionalProperty(t *testing.T) {
	_, entity := mergeProduct(t, `{
		"@type": "Product",
		"name": "Lamp",
		"brand": {"@type": "Brand", "name": "Bright"},
		"additionalProperty": [
			{"@type": "PropertyValue", "name": "Power", "value": 40, "unitText": "W"},
			{"@type": "PropertyValue", "name": "Socket", "value": "E27"}
		]
	}`)

	assertValues(t, entity, "brand", "Bright")
	got := map[string]string{}
	for _, d := range entity.Get("genericProperty") {
		got[d.Attr("name")] = meta.ValueString(d.Value)
	}
	if got["Power"] != "40 W" || got["Socket"] != "E27" {
		t.Errorf("genericProperty = %v", got)
	}
}

func TestOfferPrice(t *testing.T) {
	tests := []struct {
		name  string
		offer Node
		want  string
	}{
		{name: "price with symbol", offer: Node{"price": "10", "priceCurrency": "USD"}, want: "$10.00"},
		{name: "numeric price", offer: Node{"price": 1234.5, "priceCurrency": "USD"}, want: "$1,234.50"},
		{name: "unknown currency", offer: Node{"price": "3450", "priceCurrency": "CUR"}, want: "CUR\u00a03,450.00"},
		{name: "no currency", offer: Node{"price": "12.30"}, want: "12.30"},
		{name: "price and range", offer: Node{"price": "5", "lowPrice": "4", "highPrice": "6", "priceCurrency": "USD"}, want: "$5.00/4-6"},
		{name: "range only", offer: Node{"lowPrice": "4", "highPrice": "6", "priceCurrency": "USD"}, want: "$4.00-$6.00"},
		{name: "zero price", offer: Node{"price": 0, "priceCurrency": "USD"}, want: ""},
		{name: "single offer count", offer: Node{"price": "1", "offerCount": "1"}, want: "1"},
		{name: "malformed price", offer: Node{"price": "about 5", "priceCurrency": "USD"}, want: "about 5 USD"},
		{name: "malformed currency", offer: Node{"price": "5", "priceCurrency": "dollars"}, want: "5 dollars"},
	}

	u := NewUnifier(testLogger(), "en-US")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := u.offerPrice(tt.offer); got != tt.want {
				t.Errorf("offerPrice() = %q, want %q", got, tt.want)
			}
		})
	}
}
