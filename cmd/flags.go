package cmd

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// addRenderFlags registers the flags shared by render and serve and binds
// them into the config tree.
func addRenderFlags(flags *pflag.FlagSet) {
	flags.StringP("template", "t", "", "master template file")
	flags.StringP("data", "d", "", "JSON or YAML data file")
	flags.String("placeholder", "", "text rendered for missing values")
	flags.Bool("debug", false, "verbose render tracing")

	bindings := map[string]string{
		"render.template":    "template",
		"render.data":        "data",
		"render.placeholder": "placeholder",
		"render.debug":       "debug",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", flag, err))
		}
	}
}
