package redis

import "testing"

func TestParseInfo(t *testing.T) {
	info := "# Server\r\nredis_version:7.2.4\r\nredis_mode:standalone\r\n" +
		"# Clients\r\nconnected_clients:3\r\n\r\n# Stats\r\nkeyspace_hits:10\r\nkeyspace_misses:2\r\n"

	got := parseInfo(info)

	want := map[string]string{
		"redis_version":     "7.2.4",
		"connected_clients": "3",
		"keyspace_hits":     "10",
		"keyspace_misses":   "2",
	}
	if len(got) != len(want) {
		t.Fatalf("parseInfo() = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("parseInfo()[%q] = %q, want %q", k, got[k], v)
		}
	}
	if _, ok := got["redis_mode"]; ok {
		t.Error("parseInfo() kept an unselected key")
	}
}
