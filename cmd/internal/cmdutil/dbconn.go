package cmdutil

import (
	"context"

	"github.com/qvet/qvet/dbconn"
	"github.com/spf13/cobra"
)

type connConfig struct {
	source string
	target string
}

var connCfg = connConfig{}

func RegisterDBConnFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&connCfg.source,
		"source",
		"",
		"URL of the source (system of record) database",
	)
	cmd.PersistentFlags().StringVar(
		&connCfg.target,
		"target",
		"",
		"URL of the target (migrated) database",
	)

	for _, required := range []string{"source", "target"} {
		if err := cmd.MarkPersistentFlagRequired(required); err != nil {
			panic(err)
		}
	}
}

func LoadDBConns(ctx context.Context) (dbconn.OrderedConns, error) {
	source, err := dbconn.Connect(ctx, "source", connCfg.source)
	if err != nil {
		return dbconn.OrderedConns{}, err
	}
	target, err := dbconn.Connect(ctx, "target", connCfg.target)
	if err != nil {
		return dbconn.OrderedConns{}, err
	}
	return dbconn.OrderedConns{source, target}, nil
}
