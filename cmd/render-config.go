package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/credentials"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-gw/internal/seed"
)

var renderConfigCmd = &cobra.Command{
	Use:   "render-config",
	Short: "Print the gateway config that would be seeded",
	Long: `Builds the gateway config from the credentials in the environment, as a
fresh start would, and prints it. Secrets are masked unless --show-secrets
is given.`,
	Args: cobra.NoArgs,
	RunE: runRenderConfig,
}

var renderShowSecrets bool

func init() {
	renderConfigCmd.Flags().BoolVar(&renderShowSecrets, "show-secrets", false, "Print API keys and tokens unmasked")
	rootCmd.AddCommand(renderConfigCmd)
}

func runRenderConfig(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	creds := credentials.FromEnv(callerEnv())
	sel, ok := credentials.Select(creds)
	if !ok {
		return errors.ValidationError(fmt.Sprintf("no provider credentials found; set one of %s, %s or %s",
			credentials.EnvAnthropicAPIKey, credentials.EnvOpenAIAPIKey, credentials.EnvOpenRouterAPIKey))
	}

	opts := a.Supervisor().SeedOptions
	opts.GatewayToken = creds.GatewayToken
	cfg := seed.Build(sel, opts)
	if !renderShowSecrets {
		cfg = cfg.Redacted()
	}

	data, err := cfg.Marshal()
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
