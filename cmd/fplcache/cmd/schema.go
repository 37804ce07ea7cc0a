package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"fpl-cache-api/internal/snapshot"
)

type TypeSet map[string]struct{}

type SchemaMap map[string]TypeSet

type Inventory struct {
	GeneratedAtUTC string  `json:"generated_at_utc"`
	FilesScanned   int     `json:"files_scanned"`
	FirstSnapshot  string  `json:"first_snapshot,omitempty"`
	LastSnapshot   string  `json:"last_snapshot,omitempty"`
	Fields         []Field `json:"fields"`
}

type Field struct {
	Path  string   `json:"path"`
	Types []string `json:"types"`
}

var (
	schemaOut      string
	schemaMaxFiles int
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inventory JSON field paths and types across archived snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		inv, err := buildInventory(cmd.Context(), st, schemaMaxFiles)
		if err != nil {
			return err
		}
		if schemaOut == "" {
			return printJSON(cmd.OutOrStdout(), inv)
		}
		if err := os.MkdirAll(filepath.Dir(schemaOut), 0o755); err != nil {
			return err
		}
		payload, err := json.MarshalIndent(inv, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(schemaOut, append(payload, '\n'), 0o644); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "wrote", schemaOut)
		return nil
	},
}

func init() {
	schemaCmd.Flags().StringVar(&schemaOut, "out", "", "output path (default stdout)")
	schemaCmd.Flags().IntVar(&schemaMaxFiles, "max-files", 0, "max snapshots to scan, oldest first (0 = no limit)")
}

// buildInventory walks up to maxFiles snapshots. Unreadable snapshots are
// logged and skipped.
func buildInventory(ctx context.Context, st snapshot.Store, maxFiles int) (Inventory, error) {
	refs, err := st.List(ctx)
	if err != nil {
		return Inventory{}, err
	}
	if maxFiles > 0 && len(refs) > maxFiles {
		refs = refs[:maxFiles]
	}

	inv := Inventory{GeneratedAtUTC: time.Now().UTC().Format(time.RFC3339)}
	schema := make(SchemaMap)
	for _, ref := range refs {
		raw, err := st.Load(ctx, ref.Handle)
		if err != nil {
			log.Warn().Err(err).Str("handle", ref.Handle).Msg("skipping unreadable snapshot")
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			log.Warn().Err(err).Str("handle", ref.Handle).Msg("skipping invalid json")
			continue
		}
		schema.walk(v, "$")
		inv.FilesScanned++
		if inv.FirstSnapshot == "" {
			inv.FirstSnapshot = ref.Handle
		}
		inv.LastSnapshot = ref.Handle
	}
	inv.Fields = schema.Fields()
	return inv, nil
}

// walk records the JSON type seen at path and below. Object keys are visited
// in sorted order; arrays are sampled by their first element.
func (s SchemaMap) walk(v any, path string) {
	switch x := v.(type) {
	case map[string]any:
		s.add(path, "object")
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			s.walk(x[k], path+"."+k)
		}
	case []any:
		s.add(path, "array")
		if len(x) == 0 {
			s.add(path+"[]", "unknown")
			return
		}
		s.walk(x[0], path+"[]")
	case nil:
		s.add(path, "null")
	case bool:
		s.add(path, "bool")
	case float64:
		s.add(path, "number")
	case string:
		s.add(path, "string")
	default:
		s.add(path, fmt.Sprintf("%T", v))
	}
}

func (s SchemaMap) add(path, typ string) {
	if s[path] == nil {
		s[path] = make(TypeSet)
	}
	s[path][typ] = struct{}{}
}

// Fields flattens the map into path-sorted entries with sorted type names.
func (s SchemaMap) Fields() []Field {
	fields := make([]Field, 0, len(s))
	for p, set := range s {
		f := Field{Path: p, Types: make([]string, 0, len(set))}
		for typ := range set {
			f.Types = append(f.Types, typ)
		}
		sort.Strings(f.Types)
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Path < fields[j].Path })
	return fields
}
