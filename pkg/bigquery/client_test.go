package bigquery

import (
	"testing"

	"github.com/mvalverde/agrolink-backend/pkg/config"
)

func TestConfiguredTablesTrimsAndSkipsEmpty(t *testing.T) {
	got := configuredTables(config.BigQueryConfig{MarketplaceEventsTable: "  marketplace_events  "})
	if len(got) != 1 || got[0] != "marketplace_events" {
		t.Fatalf("unexpected tables %v", got)
	}

	if got := configuredTables(config.BigQueryConfig{MarketplaceEventsTable: "   "}); len(got) != 0 {
		t.Fatalf("blank table name should be dropped, got %v", got)
	}
}

func TestClientOptionsCredentialPrecedence(t *testing.T) {
	cases := []struct {
		name string
		gcp  config.GCPConfig
		want int
	}{
		{
			name: "inline json wins over file path",
			gcp: config.GCPConfig{
				CredentialsJSON:        `{"type":"service_account"}`,
				ApplicationCredentials: "/etc/agrolink/creds.json",
			},
			want: 1,
		},
		{
			name: "file path alone",
			gcp:  config.GCPConfig{ApplicationCredentials: "/etc/agrolink/creds.json"},
			want: 1,
		},
		{
			name: "nothing configured uses default credentials",
			gcp:  config.GCPConfig{},
			want: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := clientOptions(tc.gcp); len(got) != tc.want {
				t.Fatalf("expected %d options, got %d", tc.want, len(got))
			}
		})
	}
}
