package system

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/shiftcal/internal/cli"
)

// ConfigShowCmd prints the effective configuration.
type ConfigShowCmd struct{}

func (c *ConfigShowCmd) Run(ctx *cli.Context) error {
	out, err := yaml.Marshal(ctx.Config)
	if err != nil {
		return err
	}
	fmt.Printf("# %s\n", ctx.ConfigPath)
	fmt.Print(string(out))
	return nil
}
