package pubsub

import (
	"testing"

	"github.com/artfolio/storefront-backend/pkg/config"
)

func TestResourceName(t *testing.T) {
	cases := []struct {
		project, name, kind, want string
	}{
		{"proj", "notifications", "topics", "projects/proj/topics/notifications"},
		{"proj", " order-email ", "subscriptions", "projects/proj/subscriptions/order-email"},
		{"proj", "projects/other/topics/x", "topics", "projects/other/topics/x"},
		{"proj", "projects/other/topics/x", "subscriptions", "projects/proj/subscriptions/projects/other/topics/x"},
		{"", "notifications", "topics", ""},
		{"proj", "", "topics", ""},
	}
	for _, tc := range cases {
		if got := resourceName(tc.project, tc.name, tc.kind); got != tc.want {
			t.Fatalf("resourceName(%q,%q,%q) = %q want %q", tc.project, tc.name, tc.kind, got, tc.want)
		}
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Publisher("t") != nil {
		t.Fatal("nil client should return nil publisher")
	}
	if c.Subscription("s") != nil {
		t.Fatal("nil client should return nil subscriber")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("nil close should be a no-op: %v", err)
	}
	if err := c.Ping(nil); err == nil {
		t.Fatal("nil ping should fail")
	}
}

func TestRoleString(t *testing.T) {
	if RolePublisher.String() != "publisher" || RoleSubscriber.String() != "subscriber" || Role(0).String() != "unknown" {
		t.Fatal("unexpected role names")
	}
}

func TestClientOptionsPreferInlineCredentials(t *testing.T) {
	cases := []struct {
		name string
		gcp  config.GCPConfig
		want int
	}{
		{"adc", config.GCPConfig{ProjectID: "proj"}, 0},
		{"file", config.GCPConfig{ProjectID: "proj", ApplicationCredentials: "/etc/gcp/key.json"}, 1},
		{"inline", config.GCPConfig{ProjectID: "proj", CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/etc/gcp/key.json"}, 1},
		{"blank", config.GCPConfig{ProjectID: "proj", CredentialsJSON: "  "}, 0},
	}
	for _, tc := range cases {
		if got := len(clientOptions(tc.gcp)); got != tc.want {
			t.Fatalf("%s: expected %d options got %d", tc.name, tc.want, got)
		}
	}
}
