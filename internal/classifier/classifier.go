// Package classifier finds financial signals in email text.
//
// Each rule is a two-stage filter: a cheap keyword gate over the subject
// and body, then an ordered list of regular expressions that pull out
// dates and amounts. For every field the first matching pattern wins.
package classifier

import (
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nhle/finmail/internal/decode"
	"github.com/nhle/finmail/internal/model"
)

// Config configures a Classifier.
type Config struct {
	// Debug logs every gate decision and extracted field.
	Debug bool

	// Log receives debug output. Defaults to the standard logrus logger.
	Log logrus.FieldLogger

	// Now stamps CreatedAt on new insights. Defaults to time.Now.
	Now func() time.Time

	// Rules overrides DefaultRules.
	Rules []Rule
}

// Classifier turns decoded messages into insights. It is safe for
// concurrent use.
type Classifier struct {
	debug bool
	log   logrus.FieldLogger
	now   func() time.Time
	rules []Rule
}

// New creates a Classifier from cfg.
func New(cfg Config) *Classifier {
	c := &Classifier{
		debug: cfg.Debug,
		log:   cfg.Log,
		now:   cfg.Now,
		rules: cfg.Rules,
	}
	if c.log == nil {
		c.log = logrus.StandardLogger()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.rules == nil {
		c.rules = DefaultRules()
	}
	return c
}

// Classify returns every insight found in msg, in rule order. The result
// is empty, never nil, when nothing fires.
func (c *Classifier) Classify(msg model.MessageDetail) []model.Insight {
	text := MatchText(msg)
	subject := strings.ToLower(msg.Subject)
	lowerText := strings.ToLower(text)
	createdAt := c.now().UTC()

	insights := make([]model.Insight, 0, 1)
	for _, rule := range c.rules {
		log := c.log.WithFields(logrus.Fields{"uid": msg.UID, "type": rule.Type})

		keyword := rule.gate(subject, lowerText)
		if keyword == "" {
			continue
		}
		if c.debug {
			log.WithField("keyword", keyword).Debug("gate passed")
		}

		in := model.Insight{
			MessageID:   strconv.FormatUint(uint64(msg.UID), 10),
			Type:        rule.Type,
			Description: rule.Description,
			Status:      model.StatusNew,
			Source: model.InsightSource{
				EmailSubject: msg.Subject,
				From:         msg.From,
			},
			CreatedAt: createdAt,
		}
		if !rule.Extract(text, &in) {
			if c.debug {
				log.Debug("no fields extracted")
			}
			continue
		}
		if c.debug {
			log.WithFields(fieldsOf(in)).Debug("insight found")
		}
		insights = append(insights, in)
	}
	return insights
}

// MatchText is the text rules are matched against: the plain body when
// the message has one, else the HTML body reduced to text so markup
// never splits a phrase.
func MatchText(msg model.MessageDetail) string {
	if msg.TextBody != "" {
		return msg.TextBody
	}
	if msg.IsHTML {
		return decode.StripHTML(msg.Body)
	}
	return msg.Body
}

func fieldsOf(in model.Insight) logrus.Fields {
	f := logrus.Fields{}
	if in.Amount != nil {
		f["amount"] = in.Amount.String()
	}
	if in.Date != nil {
		f[in.Type.DateField()] = in.Date.String()
	}
	if in.Percentage != nil {
		f["percentage"] = *in.Percentage
	}
	if in.OldAmount != nil && in.NewAmount != nil {
		f["old_amount"], f["new_amount"] = in.OldAmount.String(), in.NewAmount.String()
	}
	if in.PerformanceChange != nil {
		f["performance_change"] = *in.PerformanceChange
	}
	if in.TotalValue != nil {
		f["total_value"] = in.TotalValue.String()
	}
	return f
}
