// Package validate turns untrusted JSON bodies into well-typed events.
//
// The validator is a pure function of its input: it consults no external
// state and reports every field violation it finds instead of stopping at
// the first one.
package validate

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"

	"github.com/okian/pulse/internal/domain/model"
)

// maxFutureSkew bounds how far ahead of receipt time a client-supplied
// timestamp may sit before it is clamped. Client clocks are untrusted.
const maxFutureSkew = 24 * time.Hour

// wireEvent mirrors the POST /api/event body.
type wireEvent struct {
	Site      string         `json:"site" validate:"required"`
	Event     string         `json:"event" validate:"required"`
	Timestamp *int64         `json:"timestamp" validate:"omitempty,gte=0"`
	URL       string         `json:"url"`
	Referrer  string         `json:"referrer"`
	Props     map[string]any `json:"props"`
}

var rules = newRules()

func newRules() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report errors under the wire field name, not the Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Event validates an arbitrary JSON body. It returns either a well-typed
// IncomingEvent or the full list of field errors. ErrMalformedBody is
// returned only when the body is not parseable JSON at all; any parseable
// input yields a typed event or field errors, never an error.
func Event(body []byte, now time.Time) (model.IncomingEvent, []model.FieldError, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return model.IncomingEvent{}, nil, ErrMalformedBody
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		// Valid JSON that is not an object: null, array, scalar.
		return model.IncomingEvent{}, []model.FieldError{
			{Field: "body", Message: "must be a JSON object"},
		}, nil
	}

	var (
		w     wireEvent
		fails []model.FieldError
	)
	failed := map[string]bool{}
	fail := func(field, msg string) {
		failed[field] = true
		fails = append(fails, model.FieldError{Field: field, Message: msg})
	}

	// Shape pass: the body is dynamic JSON, so type mismatches are checked
	// per field here; rule violations are collected by the validator below.
	if v, present := obj["site"]; present && v != nil {
		s, ok := v.(string)
		if !ok {
			fail("site", "must be a string")
		} else {
			w.Site = strings.TrimSpace(s)
		}
	}
	if v, present := obj["event"]; present && v != nil {
		s, ok := v.(string)
		if !ok {
			fail("event", "must be a string")
		} else {
			w.Event = strings.TrimSpace(s)
		}
	}
	if v, present := obj["timestamp"]; present && v != nil {
		n, ok := v.(float64)
		switch {
		case !ok:
			fail("timestamp", "must be a number")
		case n != math.Trunc(n):
			fail("timestamp", "must be an integer")
		case n >= math.MaxInt64:
			// int64(n) would saturate and flip the sign of the error.
			fail("timestamp", "out of range")
		default:
			ms := int64(n)
			w.Timestamp = &ms
		}
	}
	if v, present := obj["url"]; present && v != nil {
		s, ok := v.(string)
		if !ok {
			fail("url", "must be a string")
		} else {
			w.URL = s
		}
	}
	if v, present := obj["referrer"]; present && v != nil {
		s, ok := v.(string)
		if !ok {
			fail("referrer", "must be a string")
		} else {
			w.Referrer = s
		}
	}
	if v, present := obj["props"]; present && v != nil {
		m, ok := v.(map[string]any)
		if !ok {
			fail("props", "must be an object")
		} else {
			w.Props = m
		}
	}

	// Rule pass: required fields and ranges, every violation collected.
	if err := rules.Struct(w); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if failed[fe.Field()] {
					// Already reported as a type mismatch.
					continue
				}
				fails = append(fails, model.FieldError{
					Field:   fe.Field(),
					Message: ruleMessage(fe),
				})
			}
		} else {
			return model.IncomingEvent{}, nil, ErrMalformedBody
		}
	}

	if len(fails) > 0 {
		return model.IncomingEvent{}, fails, nil
	}

	e := model.IncomingEvent{
		Site:      w.Site,
		Event:     w.Event,
		Timestamp: resolveTimestamp(w.Timestamp, now),
		URL:       w.URL,
		Referrer:  w.Referrer,
		Props:     w.Props,
	}
	return e, nil, nil
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must not be negative"
	default:
		return "is invalid"
	}
}

// resolveTimestamp converts optional epoch millis to event time, defaulting
// to receipt time and clamping far-future timestamps from untrusted clocks.
func resolveTimestamp(ms *int64, now time.Time) time.Time {
	if ms == nil {
		return now
	}
	t := time.UnixMilli(*ms).UTC()
	if t.After(now.Add(maxFutureSkew)) {
		return now
	}
	return t
}
