// Package localtime renders timestamps the way users in the Philippines
// read them.
package localtime

import "time"

// Manila is Philippine Standard Time (UTC+8, no daylight saving).
var Manila = time.FixedZone("PST", 8*60*60)

// Date formats t as "January 2, 2006" in Manila time.
func Date(t time.Time) string {
	return t.In(Manila).Format("January 2, 2006")
}

// Time formats t as "3:04 PM" in Manila time.
func Time(t time.Time) string {
	return t.In(Manila).Format("3:04 PM")
}

// DateTime formats t as "Mon, Jan 2 2006 3:04 PM" in Manila time.
func DateTime(t time.Time) string {
	return t.In(Manila).Format("Mon, Jan 2 2006 3:04 PM")
}
