//go:build !ORT

package provider

import "github.com/knights-analytics/hugot"

func newSession() (*hugot.Session, error) {
	return hugot.NewGoSession()
}
