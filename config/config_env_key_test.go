package config

import "testing"

func TestCanonicalizeEnvKey_UsesExistingCamelCaseKeys(t *testing.T) {
	existing := map[string]any{
		"api": map[string]any{
			"baseUrl":          "",
			"timeAuthorityUrl": "",
			"skewToleranceMs":  0,
		},
		"app": map[string]any{
			"bundleId": "",
		},
		"storage": map[string]any{
			"passphrase": "",
		},
	}

	tests := []struct {
		envKey string
		want   string
	}{
		{envKey: "API_BASEURL", want: "api.baseUrl"},
		{envKey: "API_TIMEAUTHORITYURL", want: "api.timeAuthorityUrl"},
		{envKey: "API_SKEWTOLERANCEMS", want: "api.skewToleranceMs"},
		{envKey: "APP_BUNDLEID", want: "app.bundleId"},
		{envKey: "STORAGE_PASSPHRASE", want: "storage.passphrase"},
		{envKey: "NEW_FEATURE_FLAG", want: "new.feature.flag"},
	}

	for _, tt := range tests {
		t.Run(tt.envKey, func(t *testing.T) {
			if got := canonicalizeEnvKey(tt.envKey, existing); got != tt.want {
				t.Fatalf("canonicalizeEnvKey(%q) = %q, want %q", tt.envKey, got, tt.want)
			}
		})
	}
}
