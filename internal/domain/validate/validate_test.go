package validate_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/okian/pulse/internal/domain/model"
	validate "github.com/okian/pulse/internal/domain/validate"
	. "github.com/smartystreets/goconvey/convey"
)

func fieldsOf(errs []model.FieldError) []string {
	out := make([]string, 0, len(errs))
	for _, fe := range errs {
		out = append(out, fe.Field)
	}
	return out
}

func TestEventValidation(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	Convey("Given a minimal valid body", t, func() {
		e, errs, err := validate.Event([]byte(`{"site":"abc123","event":"pageview"}`), now)

		Convey("Then it validates with defaults applied", func() {
			So(err, ShouldBeNil)
			So(errs, ShouldBeEmpty)
			So(e.Site, ShouldEqual, "abc123")
			So(e.Event, ShouldEqual, "pageview")
			So(e.Timestamp.Equal(now), ShouldBeTrue)
			So(e.Props, ShouldBeNil)
		})
	})

	Convey("Given a full body", t, func() {
		body := []byte(`{
			"site": "abc123",
			"event": "signup",
			"timestamp": 1767225600000,
			"url": "https://example.com/pricing",
			"referrer": "https://news.ycombinator.com/",
			"props": {"plan": "pro", "seats": 3, "trial": true}
		}`)
		e, errs, err := validate.Event(body, now)

		Convey("Then all fields carry through", func() {
			So(err, ShouldBeNil)
			So(errs, ShouldBeEmpty)
			So(e.Timestamp.Equal(time.UnixMilli(1767225600000)), ShouldBeTrue)
			So(e.URL, ShouldEqual, "https://example.com/pricing")
			So(e.Referrer, ShouldEqual, "https://news.ycombinator.com/")
			So(e.Props["plan"], ShouldEqual, "pro")
			So(e.Props["seats"], ShouldEqual, 3.0)
			So(e.Props["trial"], ShouldEqual, true)
		})
	})

	Convey("Given unparseable bytes", t, func() {
		_, errs, err := validate.Event([]byte(`{"site": "abc`), now)

		Convey("Then only the malformed sentinel is returned", func() {
			So(err, ShouldEqual, validate.ErrMalformedBody)
			So(errs, ShouldBeEmpty)
		})
	})

	Convey("Given valid JSON that is not an object", t, func() {
		for _, body := range []string{`null`, `[1,2,3]`, `"hello"`, `42`} {
			_, errs, err := validate.Event([]byte(body), now)

			So(err, ShouldBeNil)
			So(errs, ShouldHaveLength, 1)
			So(errs[0].Field, ShouldEqual, "body")
		}
	})

	Convey("Given an empty object", t, func() {
		_, errs, err := validate.Event([]byte(`{}`), now)

		Convey("Then both required fields are reported", func() {
			So(err, ShouldBeNil)
			So(fieldsOf(errs), ShouldContain, "site")
			So(fieldsOf(errs), ShouldContain, "event")
		})
	})

	Convey("Given multiple violations at once", t, func() {
		body := []byte(`{"site":"", "timestamp":-5, "props":["not","an","object"]}`)
		_, errs, err := validate.Event(body, now)

		Convey("Then every violation is enumerated", func() {
			So(err, ShouldBeNil)
			fields := fieldsOf(errs)
			So(fields, ShouldContain, "site")
			So(fields, ShouldContain, "event")
			So(fields, ShouldContain, "timestamp")
			So(fields, ShouldContain, "props")
		})
	})

	Convey("Given wrong field types", t, func() {
		body := []byte(`{"site":123, "event":{"a":1}, "url":9, "referrer":[], "timestamp":"soon"}`)
		_, errs, err := validate.Event(body, now)

		Convey("Then each mismatch is reported exactly once", func() {
			So(err, ShouldBeNil)
			fields := fieldsOf(errs)
			So(fields, ShouldContain, "site")
			So(fields, ShouldContain, "event")
			So(fields, ShouldContain, "url")
			So(fields, ShouldContain, "referrer")
			So(fields, ShouldContain, "timestamp")
			seen := map[string]int{}
			for _, f := range fields {
				seen[f]++
			}
			for _, n := range seen {
				So(n, ShouldEqual, 1)
			}
		})
	})

	Convey("Given a fractional timestamp", t, func() {
		_, errs, err := validate.Event([]byte(`{"site":"a","event":"e","timestamp":12.5}`), now)

		So(err, ShouldBeNil)
		So(fieldsOf(errs), ShouldContain, "timestamp")
	})

	Convey("Given a timestamp beyond the integer range", t, func() {
		_, errs, err := validate.Event([]byte(`{"site":"a","event":"e","timestamp":1e300}`), now)

		Convey("Then it is rejected as out of range, not as negative", func() {
			So(err, ShouldBeNil)
			So(errs, ShouldHaveLength, 1)
			So(errs[0].Field, ShouldEqual, "timestamp")
			So(errs[0].Message, ShouldEqual, "out of range")
		})
	})

	Convey("Given a whitespace-only site key", t, func() {
		_, errs, err := validate.Event([]byte(`{"site":"   ","event":"pageview"}`), now)

		Convey("Then site is still required", func() {
			So(err, ShouldBeNil)
			So(fieldsOf(errs), ShouldContain, "site")
		})
	})

	Convey("Given null optional fields", t, func() {
		e, errs, err := validate.Event([]byte(`{"site":"a","event":"e","url":null,"props":null}`), now)

		Convey("Then nulls are treated as absent", func() {
			So(err, ShouldBeNil)
			So(errs, ShouldBeEmpty)
			So(e.URL, ShouldEqual, "")
			So(e.Props, ShouldBeNil)
		})
	})

	Convey("Given a timestamp far in the future", t, func() {
		future := strconv.FormatInt(now.Add(48*time.Hour).UnixMilli(), 10)
		e, errs, err := validate.Event([]byte(`{"site":"a","event":"e","timestamp":`+future+`}`), now)

		Convey("Then it is clamped to receipt time", func() {
			So(err, ShouldBeNil)
			So(errs, ShouldBeEmpty)
			So(e.Timestamp.Equal(now), ShouldBeTrue)
		})
	})

	Convey("Given a slightly future timestamp", t, func() {
		soon := now.Add(time.Hour).UnixMilli()
		e, errs, err := validate.Event([]byte(`{"site":"a","event":"e","timestamp":`+strconv.FormatInt(soon, 10)+`}`), now)

		Convey("Then it is kept as-is", func() {
			So(err, ShouldBeNil)
			So(errs, ShouldBeEmpty)
			So(e.Timestamp.Equal(time.UnixMilli(soon)), ShouldBeTrue)
		})
	})

	Convey("Given deeply nested garbage props", t, func() {
		body := []byte(`{"site":"a","event":"e","props":{"a":{"b":{"c":[{"d":null}]}}}}`)
		e, errs, err := validate.Event(body, now)

		Convey("Then the bag is accepted opaquely", func() {
			So(err, ShouldBeNil)
			So(errs, ShouldBeEmpty)
			So(e.Props, ShouldContainKey, "a")
		})
	})
}
