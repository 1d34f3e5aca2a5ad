package registry

// Builtin is the low-priority, always-present service catalogue. A
// user-supplied overlay (see Registry.reload) may add new services or
// override any of these by name.
func Builtin() []ServiceSpec {
	return []ServiceSpec{
		{
			Name:          "anthropic",
			Upstream:      "https://api.anthropic.com",
			AuthMode:      HeaderAuth,
			AuthHeader:    "x-api-key",
			CredentialKey: "api_key",
			HostPatterns:  []string{"api.anthropic.com"},
		},
		{
			Name:          "openai",
			Upstream:      "https://api.openai.com",
			AuthMode:      HeaderAuth,
			AuthHeader:    "Authorization",
			AuthPrefix:    "Bearer ",
			CredentialKey: "api_key",
			HostPatterns:  []string{"api.openai.com"},
		},
		{
			Name:          "github",
			Upstream:      "https://api.github.com",
			AuthMode:      HeaderAuth,
			AuthHeader:    "Authorization",
			AuthPrefix:    "Bearer ",
			CredentialKey: "token",
			HostPatterns:  []string{"api.github.com", "*.github.com"},
		},
		{
			Name:          "slack",
			Upstream:      "https://slack.com",
			AuthMode:      HeaderAuth,
			AuthHeader:    "Authorization",
			AuthPrefix:    "Bearer ",
			CredentialKey: "bot_token",
			HostPatterns:  []string{"slack.com", "*.slack.com"},
		},
		{
			Name:          "telegram",
			Upstream:      "https://api.telegram.org",
			AuthMode:      UrlPathAuth,
			URLPrefix:     "bot",
			CredentialKey: "bot_token",
			HostPatterns:  []string{"api.telegram.org"},
		},
		{
			Name:          "twilio",
			Upstream:      "https://api.twilio.com",
			AuthMode:      BasicAuth,
			BasicSIDKey:   "account_sid",
			BasicTokenKey: "auth_token",
			HostPatterns:  []string{"api.twilio.com"},
		},
		{
			Name:          "discord",
			Upstream:      "https://discord.com",
			AuthMode:      HeaderMulti,
			AuthHeader:    "Authorization",
			AuthPrefix:    "Bot ",
			CredentialKey: "bot_token",
			ExtraHeaders: []ExtraHeader{
				{Header: "X-Audit-Log-Reason", CredentialKey: "audit_reason"},
			},
			HostPatterns: []string{"discord.com", "*.discord.com"},
		},
		{
			Name:     "internal-vault",
			AuthMode: None,
		},
	}
}
