package config

import "sort"

// SiteConfig holds request and filter settings for one wiki host.
type SiteConfig struct {
	// Cookie is sent as the Cookie header.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers for this host.
	Headers map[string]string `yaml:"headers,omitempty"`

	// IgnorePatterns are glob patterns of paths to skip, e.g. "/admin:*".
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns restrict the crawl to matching paths when set.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// RequestHeaders returns Headers with the cookie folded in.
func (sc SiteConfig) RequestHeaders() map[string]string {
	if len(sc.Headers) == 0 && sc.Cookie == "" {
		return nil
	}
	h := make(map[string]string, len(sc.Headers)+1)
	for k, v := range sc.Headers {
		h[k] = v
	}
	if sc.Cookie != "" {
		h["Cookie"] = sc.Cookie
	}
	return h
}

// File represents the structure of the .wikiscrape configuration file.
type File struct {
	// Seeds replace the built-in default seeds when no URL is given on
	// the command line.
	Seeds []string `yaml:"seeds,omitempty"`

	// Defaults apply to every host unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Sites maps hosts (with port, if any) to their settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`
}

// GetSiteConfig returns the configuration for host, merged with defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	if siteConfig, ok := cf.Sites[host]; ok {
		if siteConfig.Cookie != "" {
			result.Cookie = siteConfig.Cookie
		}
		if len(siteConfig.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string)
			}
			for k, v := range siteConfig.Headers {
				result.Headers[k] = v
			}
		}
		if len(siteConfig.IgnorePatterns) > 0 {
			result.IgnorePatterns = siteConfig.IgnorePatterns
		}
		if len(siteConfig.FollowPatterns) > 0 {
			result.FollowPatterns = siteConfig.FollowPatterns
		}
	}
	return result
}

// Hosts returns the hosts with their own section in sorted order.
func (cf *File) Hosts() []string {
	hosts := make([]string, 0, len(cf.Sites))
	for h := range cf.Sites {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}
