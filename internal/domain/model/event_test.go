package model_test

import (
	"testing"
	"time"

	model "github.com/okian/pulse/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestSiteConfigExpired(t *testing.T) {
	convey.Convey("Given site configurations", t, func() {
		now := time.Now()

		convey.Convey("When the site is permanent", func() {
			site := model.SiteConfig{SiteKey: "abc123"}

			convey.Convey("Then it never expires", func() {
				convey.So(site.Expired(now), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the site is temp without an expiry", func() {
			site := model.SiteConfig{SiteKey: "tmp-1", IsTemp: true}

			convey.Convey("Then it is not expired", func() {
				convey.So(site.Expired(now), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the site is temp with a future expiry", func() {
			site := model.SiteConfig{
				SiteKey:   "tmp-2",
				IsTemp:    true,
				ExpiresAt: now.Add(time.Hour),
			}

			convey.Convey("Then it is not expired", func() {
				convey.So(site.Expired(now), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the site is temp with a past expiry", func() {
			site := model.SiteConfig{
				SiteKey:   "tmp-3",
				IsTemp:    true,
				ExpiresAt: now.Add(-time.Minute),
			}

			convey.Convey("Then it is expired", func() {
				convey.So(site.Expired(now), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a permanent site carries a past expiry", func() {
			site := model.SiteConfig{
				SiteKey:   "perm-1",
				ExpiresAt: now.Add(-time.Minute),
			}

			convey.Convey("Then the expiry is ignored", func() {
				convey.So(site.Expired(now), convey.ShouldBeFalse)
			})
		})
	})
}

func TestEnrichedEventEmbedding(t *testing.T) {
	convey.Convey("Given an enriched event", t, func() {
		incoming := model.IncomingEvent{
			Site:      "abc123",
			Event:     "pageview",
			Timestamp: time.Now(),
			URL:       "https://example.com/",
			Props:     map[string]any{"plan": "pro"},
		}
		enriched := model.EnrichedEvent{
			IncomingEvent: incoming,
			DeviceType:    model.DeviceDesktop,
			Browser:       "Firefox",
		}

		convey.Convey("Then incoming fields stay reachable", func() {
			convey.So(enriched.Site, convey.ShouldEqual, "abc123")
			convey.So(enriched.Event, convey.ShouldEqual, "pageview")
			convey.So(enriched.Props["plan"], convey.ShouldEqual, "pro")
		})

		convey.Convey("Then derived fields sit alongside them", func() {
			convey.So(enriched.DeviceType, convey.ShouldEqual, model.DeviceDesktop)
			convey.So(enriched.Browser, convey.ShouldEqual, "Firefox")
		})
	})
}
