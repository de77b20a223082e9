package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/matjam/slideframe"
	"github.com/matjam/slideframe/internal/cli/cmd"
	"github.com/matjam/slideframe/internal/cli/cmd/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "slideframe",
	Short: "A picture frame slideshow",
	Long: `slideframe shows the images in a directory as a continuous slideshow.
Images are oriented, fitted to the display and staged ahead of time so that
a small board can switch between them instantly.`,
	Run: func(c *cobra.Command, args []string) {
		if v, err := c.Flags().GetBool("show-config"); err == nil && v {
			log.Infof("Using config file: %v", viper.ConfigFileUsed())
			log.Infof("All settings:")
			utils.PrintJSONColored(viper.AllSettings())
			return
		}

		if v, err := c.Flags().GetBool("version"); err == nil && v {
			printVersion()
			return
		}

		if v, err := c.Flags().GetBool("installconfig"); err == nil && v {
			utils.InstallDefaultConfig()
			return
		}

		background, _ := c.Flags().GetBool("background")
		cmd.StartManager(background)
	},
}

func printVersion() {
	babyBlue := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("76"))
	log.Infof("%v version %v",
		babyBlue.Render("slideframe"),
		green.Render(strings.Trim(slideframe.Version, "\n\r ")))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	cobra.CheckErr(err)
}

func init() {
	cobra.OnInitialize(InitConfig)

	RegisterFlags(rootCmd)

	rootCmd.AddCommand(
		cmd.NewStartCmd(),
		cmd.NewStopCmd(),
		cmd.NewNextCmd(),
		cmd.NewRefreshCmd(),
		cmd.NewStatusCmd(),
		cmd.NewGenManCmd(rootCmd),
	)
}
