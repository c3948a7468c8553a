// Package routing resolves a user's email domain to the push and
// credential service endpoints serving that domain. Tables are immutable
// configuration data, injected into the components that need them so
// tests can substitute synthetic domains.
package routing

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	pusherrors "github.com/mailpush/pushmail-sdk-go/pkg/errors"
)

// Route holds the endpoints and product identifier for one email domain.
type Route struct {
	// PushEndpoint is the CometD long-poll URL for the domain
	PushEndpoint string `yaml:"push_endpoint"`
	// AuthEndpoint is the credential service login URL for the domain
	AuthEndpoint string `yaml:"auth_endpoint"`
	// Product identifies the client to the credential service
	Product string `yaml:"product"`
}

// Table maps email-domain suffixes to routes.
type Table struct {
	routes map[string]Route
}

// NewTable builds a table from a domain → route map.
func NewTable(routes map[string]Route) *Table {
	copied := make(map[string]Route, len(routes))
	for domain, route := range routes {
		copied[strings.ToLower(domain)] = route
	}
	return &Table{routes: copied}
}

// DefaultTable returns the built-in production routing table.
func DefaultTable() *Table {
	return NewTable(map[string]Route{
		"163.com": {
			PushEndpoint: "http://push.mail.163.com/cometd",
			AuthEndpoint: "https://reg.163.com/services/userlogin",
			Product:      "mobilemail",
		},
		"126.com": {
			PushEndpoint: "http://push.mail.126.com/cometd",
			AuthEndpoint: "http://passport.126.com/services/userlogin",
			Product:      "mobilemail",
		},
		"yeah.net": {
			PushEndpoint: "http://push.mail.yeah.net/cometd",
			AuthEndpoint: "http://passport.yeah.net/services/userlogin",
			Product:      "mobilemail",
		},
		"netease.com": {
			PushEndpoint: "http://push.mail.yeah.net/cometd",
			AuthEndpoint: "http://passport.yeah.net/services/userlogin",
			Product:      "mobilemail",
		},
		"188.com": {
			PushEndpoint: "http://push.mail.163.com/cometd",
			AuthEndpoint: "http://passport.188.com/services/userlogin",
			Product:      "mobilemail",
		},
		"vip.188.com": {
			PushEndpoint: "http://push.mail.163.com/cometd",
			AuthEndpoint: "http://passport.188.com/services/userlogin",
			Product:      "mobilemail",
		},
		"vip.126.com": {
			PushEndpoint: "http://push.mail.126.com/cometd",
			AuthEndpoint: "http://passport.126.com/services/userlogin",
			Product:      "mobilemail",
		},
		"vip.163.com": {
			PushEndpoint: "http://push.mail.163.com/cometd",
			AuthEndpoint: "https://reg.163.com/services/userlogin",
			Product:      "mobilemail",
		},
	})
}

// Load reads a routing table from a YAML file. The file maps domains to
// routes:
//
//	163.com:
//	  push_endpoint: http://push.mail.163.com/cometd
//	  auth_endpoint: https://reg.163.com/services/userlogin
//	  product: mobilemail
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read routing table: %w", err)
	}

	var routes map[string]Route
	if err := yaml.Unmarshal(data, &routes); err != nil {
		return nil, fmt.Errorf("failed to parse routing table: %w", err)
	}
	if len(routes) == 0 {
		return nil, fmt.Errorf("routing table %s is empty", path)
	}

	return NewTable(routes), nil
}

// Domain extracts the domain suffix of an email address. An address
// without an @ has no domain.
func Domain(username string) string {
	idx := strings.Index(username, "@")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(username[idx+1:])
}

// Resolve returns the route serving the username's domain. An unmapped
// or missing domain is a configuration error, rejected before any
// network call.
func (t *Table) Resolve(username string) (Route, error) {
	domain := Domain(username)
	if domain == "" {
		return Route{}, pusherrors.Newf(pusherrors.CodeIllegalParam, "username %q has no domain", username)
	}

	route, ok := t.routes[domain]
	if !ok {
		return Route{}, pusherrors.Newf(pusherrors.CodeIllegalParam, "no route for domain %q", domain)
	}
	return route, nil
}

// Domains lists the domains known to the table.
func (t *Table) Domains() []string {
	domains := make([]string, 0, len(t.routes))
	for domain := range t.routes {
		domains = append(domains, domain)
	}
	return domains
}
