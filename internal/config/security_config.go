package config

import "time"

// SecurityConfig holds response hardening settings
type SecurityConfig struct {
	HSTSMaxAge            time.Duration
	HSTSIncludeSubdomains bool
	ContentSecurityPolicy string
}

// loadSecurityConfig enables HSTS only in production, where the API sits
// behind TLS
func loadSecurityConfig(env string) SecurityConfig {
	cfg := SecurityConfig{
		HSTSIncludeSubdomains: getEnv("HSTS_INCLUDE_SUBDOMAINS", "true") == "true",
		ContentSecurityPolicy: getEnv("CONTENT_SECURITY_POLICY", "default-src 'none'; frame-ancestors 'none'"),
	}
	if env == "production" {
		cfg.HSTSMaxAge = getEnvDuration("HSTS_MAX_AGE", 365*24*time.Hour)
	}
	return cfg
}
