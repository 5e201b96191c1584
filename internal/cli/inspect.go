package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Uke-Messaging/uke-pallet/pkg/api/routes"
	"github.com/Uke-Messaging/uke-pallet/pkg/models"
	"github.com/Uke-Messaging/uke-pallet/pkg/store"
	"github.com/Uke-Messaging/uke-pallet/pkg/store/active"
	"github.com/Uke-Messaging/uke-pallet/pkg/store/keys"
	"github.com/Uke-Messaging/uke-pallet/pkg/store/threads"
	"github.com/Uke-Messaging/uke-pallet/pkg/store/users"
)

const sampleKeys = 5

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <db-path>",
		Short: "Summarize the keys of a uke database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReadOnly(args[0], func(st *store.Store) error {
				return inspectDatabase(cmd.OutOrStdout(), st)
			})
		},
	}
}

func newThreadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "thread <db-path> <convo-id>",
		Short: "Print the messages of one conversation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReadOnly(args[0], func(st *store.Store) error {
				msgs, err := threads.List(st.Reader(), []byte(args[1]))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), routes.MessagesJSON(msgs))
			})
		},
	}
}

func newActiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "active <db-path> <identity>",
		Short: "Print the active conversations of an identity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReadOnly(args[0], func(st *store.Store) error {
				list, err := active.List(st.Reader(), models.Identity(args[1]))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), routes.ActiveJSON(list))
			})
		},
	}
}

func newUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "user <db-path> <username>",
		Short: "Resolve a username to its account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReadOnly(args[0], func(st *store.Store) error {
				u, found, err := users.Get(st.Reader(), []byte(args[1]))
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("username %q not registered", args[1])
				}
				return printJSON(cmd.OutOrStdout(), routes.ToUserJSON(*u))
			})
		},
	}
}

func withReadOnly(path string, fn func(st *store.Store) error) error {
	st, err := store.Open(path, store.Options{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer st.Close()
	return fn(st)
}

func inspectDatabase(w io.Writer, st *store.Store) error {
	counts := map[keys.KeyType]int{}
	samples := map[keys.KeyType][]string{}
	total, unknown := 0, 0

	err := store.ScanPrefix(st.Reader(), nil, func(k, _ []byte) error {
		total++
		parts, err := keys.ParseKey(string(k))
		if err != nil {
			unknown++
			return nil
		}
		counts[parts.Type]++
		if len(samples[parts.Type]) < sampleKeys {
			samples[parts.Type] = append(samples[parts.Type], string(k))
		}
		return nil
	})
	if err != nil {
		return err
	}

	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, string(t))
	}
	sort.Strings(types)

	fmt.Fprintf(w, "Database: %s\n", st.Path())
	fmt.Fprintln(w, "=====================================")
	for _, t := range types {
		kt := keys.KeyType(t)
		fmt.Fprintf(w, "%-16s %s\n", t, humanize.Comma(int64(counts[kt])))
		for _, s := range samples[kt] {
			fmt.Fprintf(w, "    %s\n", s)
		}
	}
	fmt.Fprintf(w, "%-16s %s\n", "unknown", humanize.Comma(int64(unknown)))
	fmt.Fprintf(w, "%-16s %s\n", "total", humanize.Comma(int64(total)))
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
