// Package ratelimit paces HTTP requests per host on top of
// golang.org/x/time/rate.
//
// Search result pages are always paced. Image downloads are paced only
// when download.requests_per_second is set, since a batch is already
// bounded by its deadline.
package ratelimit
