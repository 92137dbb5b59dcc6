// Package catalog holds the builtin plugin descriptors. Their settings form
// the base catalog of known configuration keys seeded into a fresh store.
package catalog

import (
	"github.com/GoProxyGuard/GoProxyGuard/internal/db/controller/plugin"
)

// Builtin returns the builtin plugin descriptors, in seed order.
func Builtin() []plugin.Manifest {
	return []plugin.Manifest{
		{
			ID:          "general",
			Order:       999, //nolint: mnd
			Name:        "General",
			Description: "Core proxy settings",
			Version:     "1.0.0",
			Settings: map[string]plugin.SettingSpec{
				"MULTISITE": {
					ID:      "multisite",
					Context: "global",
					Default: "no",
					Help:    "Enable per-service configuration on top of the global layer.",
					Label:   "Multisite",
					Regex:   "^(yes|no)$",
					Type:    "check",
				},
				"SERVER_NAME": {
					ID:      "server-name",
					Context: "multisite",
					Default: "",
					Help:    "Space-separated list of proxied server names.",
					Label:   "Server name",
					Regex:   "^.*$",
					Type:    "text",
				},
				"LOG_LEVEL": {
					ID:      "log-level",
					Context: "multisite",
					Default: "info",
					Help:    "Verbosity of the proxy logs.",
					Label:   "Log level",
					Regex:   "^(debug|info|warn|error)$",
					Type:    "select",
					Select:  []string{"debug", "info", "warn", "error"},
				},
				"HTTP_PORT": {
					ID:      "http-port",
					Context: "global",
					Default: "8080",
					Help:    "Listening port for plain HTTP.",
					Label:   "HTTP port",
					Regex:   `^\d+$`,
					Type:    "text",
				},
				"HTTPS_PORT": {
					ID:      "https-port",
					Context: "global",
					Default: "8443",
					Help:    "Listening port for TLS.",
					Label:   "HTTPS port",
					Regex:   `^\d+$`,
					Type:    "text",
				},
				"REVERSE_PROXY_URL": {
					ID:       "reverse-proxy-url",
					Context:  "multisite",
					Default:  "",
					Help:     "Location path to proxy, repeatable per upstream.",
					Label:    "Reverse proxy url",
					Regex:    "^.*$",
					Type:     "text",
					Multiple: true,
				},
				"REVERSE_PROXY_HOST": {
					ID:       "reverse-proxy-host",
					Context:  "multisite",
					Default:  "",
					Help:     "Upstream host to proxy to, repeatable per upstream.",
					Label:    "Reverse proxy host",
					Regex:    "^.*$",
					Type:     "text",
					Multiple: true,
				},
				"USE_GZIP": {
					ID:      "use-gzip",
					Context: "multisite",
					Default: "yes",
					Help:    "Compress responses with gzip.",
					Label:   "Gzip",
					Regex:   "^(yes|no)$",
					Type:    "check",
					Select:  []string{"yes", "no"},
				},
			},
			Jobs: []plugin.JobSpec{
				{
					Name:   "certbot-renew",
					File:   "certbot-renew.sh",
					Every:  "day",
					Reload: true,
				},
			},
		},
	}
}
