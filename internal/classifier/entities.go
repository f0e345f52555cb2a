package classifier

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nhle/finmail/internal/decode"
	"github.com/nhle/finmail/internal/model"
)

// Entity is a literal found in a message body together with its
// normalized value. Value is empty when the literal could not be
// normalized.
type Entity struct {
	Text  string `json:"text"`
	Value string `json:"value,omitempty"`
}

// Entities lists the dates, amounts and links in a message body.
type Entities struct {
	Dates   []Entity `json:"dates"`
	Amounts []Entity `json:"amounts"`
	Links   []string `json:"links"`
}

var (
	anyDates = func() []datePattern {
		var out []datePattern
		for _, body := range dateBodies {
			out = append(out, datePattern{re: regexp.MustCompile(`(?i)\b` + body.expr), form: body.form})
		}
		return out
	}()

	anyAmounts = []*regexp.Regexp{
		regexp.MustCompile(`\$` + amountExpr),
		regexp.MustCompile(`(?i)` + amountExpr + `\s*(?:USD|dollars|EUR|GBP)\b`),
	}

	plainLinks = regexp.MustCompile(`https?://[^\s<>"')\]]+`)
)

// Extract lists every date literal, monetary literal and hyperlink in
// body, in order of appearance per pattern.
func Extract(body string, isHTML bool) Entities {
	text := body
	e := Entities{Dates: []Entity{}, Amounts: []Entity{}, Links: []string{}}
	if isHTML {
		e.Links = htmlLinks(body)
		text = stripForEntities(body)
	} else {
		for _, link := range plainLinks.FindAllString(body, -1) {
			e.Links = append(e.Links, strings.TrimRight(link, ".,;:!?"))
		}
	}

	for _, p := range anyDates {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			ent := Entity{Text: m[0]}
			if d, ok := p.form.date(m[1], m[2], m[3]); ok {
				ent.Value = d.String()
			}
			e.Dates = append(e.Dates, ent)
		}
	}

	for _, re := range anyAmounts {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			ent := Entity{Text: m[0]}
			if amount, err := model.ParseMoney(m[1]); err == nil {
				ent.Value = amount.String()
			}
			e.Amounts = append(e.Amounts, ent)
		}
	}
	return e
}

// htmlLinks collects the href of every anchor element.
func htmlLinks(doc string) []string {
	links := []string{}
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return links
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if atom.Lookup(name) != atom.A || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if strings.EqualFold(string(key), "href") && len(val) > 0 {
					links = append(links, string(val))
				}
				if !more {
					break
				}
			}
		}
	}
}

func stripForEntities(doc string) string {
	return strings.Join(strings.Fields(decode.StripHTML(doc)), " ")
}
