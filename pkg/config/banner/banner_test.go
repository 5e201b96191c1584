package banner

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Uke-Messaging/uke-pallet/pkg/config"
)

func TestPrintWithEff(t *testing.T) {
	cfg := &config.Config{}
	cfg.Security.APIKeys.Backend = []string{"b1"}
	cfg.Events.Kafka.Enabled = true
	cfg.ApplyDefaults("/tmp/db")

	var buf bytes.Buffer
	PrintWithEff(&buf, config.EffectiveConfigResult{Config: cfg, Addr: ":8080", DBPath: "/tmp/db", Source: "config+env"}, "v1.2.3")

	out := buf.String()
	assert.Contains(t, out, "Listen:   :8080")
	assert.Contains(t, out, "Version:  v1.2.3")
	assert.Contains(t, out, "Config:   config+env")
	assert.Contains(t, out, "- Backend API keys: OK (1)")
	assert.Contains(t, out, "- Admin API keys: MISSING")
	assert.Contains(t, out, "- Events: kafka(uke.events)")
	assert.Contains(t, out, "- Snapshots: disabled")
}
