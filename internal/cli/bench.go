package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	vegeta "github.com/tsenart/vegeta/lib"

	"github.com/Uke-Messaging/uke-pallet/pkg/api/routes"
)

// BenchConfig describes one load run.
type BenchConfig struct {
	Host        string
	BackendKey  string
	User        string
	RPS         int
	Duration    time.Duration
	Pattern     string
	Convos      int
	PayloadSize int
}

const (
	patternStore = "store_messages"
	patternRead  = "read_threads"
)

func newBenchCmd() *cobra.Command {
	cfg := BenchConfig{}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a load test against a uke server",
		Long: `Send store_message calls (or thread reads) at a constant rate and
report latency and status distribution. The backend key asserts the caller
identity, so no signatures are needed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := profileFrom(cmd)
			if err != nil {
				return err
			}
			cfg.Host = pick(cmd.Flags().Changed("host"), cfg.Host, p.Host, defaultHost)
			cfg.BackendKey = pick(cmd.Flags().Changed("backend-key"), cfg.BackendKey, p.BackendKey, "")
			cfg.User = pick(cmd.Flags().Changed("user"), cfg.User, p.User, "bench")
			if cfg.BackendKey == "" {
				return fmt.Errorf("backend key required: set --backend-key or backend_key in the profile")
			}

			targets, err := buildTargets(cfg)
			if err != nil {
				return err
			}
			if v, _ := cmd.Flags().GetBool("verbose"); v {
				fmt.Fprintf(cmd.ErrOrStderr(), "bench: %s %d rps for %s over %d conversations (%d workers)\n",
					cfg.Pattern, cfg.RPS, cfg.Duration, cfg.Convos, runtime.NumCPU())
			}
			m := attack(targets, cfg)
			writeReport(cmd.OutOrStdout(), m)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.Host, "host", defaultHost, "uke server base URL")
	f.StringVar(&cfg.BackendKey, "backend-key", "", "backend API key")
	f.StringVar(&cfg.User, "user", "bench", "sender identity")
	f.IntVar(&cfg.RPS, "rps", 100, "requests per second")
	f.DurationVar(&cfg.Duration, "duration", 10*time.Second, "run duration")
	f.StringVar(&cfg.Pattern, "pattern", patternStore, "store_messages or read_threads")
	f.IntVar(&cfg.Convos, "convos", 50, "number of conversations to spread load over")
	f.IntVar(&cfg.PayloadSize, "payload-size", 64, "message size in bytes")
	return cmd
}

func benchConvoID(i int) string { return fmt.Sprintf("b%d", i) }

// buildTargets pre-generates one target per request of the run.
func buildTargets(cfg BenchConfig) ([]vegeta.Target, error) {
	if cfg.RPS <= 0 || cfg.Duration <= 0 {
		return nil, fmt.Errorf("rps and duration must be positive")
	}
	if cfg.Convos <= 0 {
		return nil, fmt.Errorf("convos must be positive")
	}
	total := cfg.RPS * int(cfg.Duration.Seconds())
	if total <= 0 {
		total = cfg.RPS
	}
	host := strings.TrimRight(cfg.Host, "/")
	header := http.Header{
		"Authorization": {"Bearer " + cfg.BackendKey},
		"Content-Type":  {"application/json"},
		"X-User-Id":     {cfg.User},
	}
	payload := []byte(strings.Repeat("x", cfg.PayloadSize))

	targets := make([]vegeta.Target, 0, total)
	for i := 0; i < total; i++ {
		convo := benchConvoID(i % cfg.Convos)
		switch cfg.Pattern {
		case patternStore:
			body, err := json.Marshal(map[string]any{
				"message":        payload,
				"time":           uint64(time.Now().Unix()),
				"convo_id":       []byte(convo),
				"recipient":      "peer-" + convo,
				"recipient_name": []byte("peer"),
				"sender_name":    []byte("bench"),
			})
			if err != nil {
				return nil, err
			}
			targets = append(targets, vegeta.Target{Method: http.MethodPost, URL: host + "/v1/messages", Body: body, Header: header})
		case patternRead:
			targets = append(targets, vegeta.Target{
				Method: http.MethodGet,
				URL:    host + "/v1/conversations/" + routes.EncodeSegment([]byte(convo)) + "/messages",
				Header: header,
			})
		default:
			return nil, fmt.Errorf("unknown pattern %q", cfg.Pattern)
		}
	}
	return targets, nil
}

func attack(targets []vegeta.Target, cfg BenchConfig) *vegeta.Metrics {
	targeter := vegeta.NewStaticTargeter(targets...)
	rate := vegeta.Rate{Freq: cfg.RPS, Per: time.Second}
	attacker := vegeta.NewAttacker(vegeta.Workers(uint64(runtime.NumCPU())))

	m := &vegeta.Metrics{}
	for res := range attacker.Attack(targeter, rate, cfg.Duration, cfg.Pattern) {
		m.Add(res)
	}
	m.Close()
	return m
}

func writeReport(w io.Writer, m *vegeta.Metrics) {
	fmt.Fprintln(w, "== Results =====================================================")
	fmt.Fprintf(w, "Requests:   %s\n", humanize.Comma(int64(m.Requests)))
	fmt.Fprintf(w, "Rate:       %.1f/s\n", m.Rate)
	fmt.Fprintf(w, "Throughput: %.1f/s\n", m.Throughput)
	fmt.Fprintf(w, "Success:    %.2f%%\n", m.Success*100)
	fmt.Fprintf(w, "Latency:    mean=%s p50=%s p95=%s p99=%s max=%s\n",
		m.Latencies.Mean, m.Latencies.P50, m.Latencies.P95, m.Latencies.P99, m.Latencies.Max)
	fmt.Fprintf(w, "Bytes in:   %s\n", humanize.Bytes(m.BytesIn.Total))

	codes := make([]string, 0, len(m.StatusCodes))
	for c := range m.StatusCodes {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	for _, c := range codes {
		fmt.Fprintf(w, "Status %s:  %s\n", c, humanize.Comma(int64(m.StatusCodes[c])))
	}
	for i, e := range m.Errors {
		if i == 5 {
			fmt.Fprintf(w, "... %d more errors\n", len(m.Errors)-5)
			break
		}
		fmt.Fprintf(w, "Error: %s\n", e)
	}
}
