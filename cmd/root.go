package cmd

import (
	"log"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/Rorical/whitelist-dapp/internal/app"
)

var rootCmd = &cobra.Command{
	Use:   "whitelist",
	Short: "Join an on-chain whitelist from the terminal",
	Long: `whitelist connects a local wallet to a deployed Whitelist contract, shows how many
addresses have joined and lets the wallet join. "whitelist deploy" deploys the contract.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		runApplication()
	},
}

func runApplication() {
	application, err := app.NewApplication(promptKeystorePassword)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	defer application.Stop()

	if err := application.Start(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

// promptKeystorePassword prefers WHITELIST_KEYSTORE_PASSWORD and asks otherwise.
func promptKeystorePassword(path string) (string, error) {
	if pw := os.Getenv("WHITELIST_KEYSTORE_PASSWORD"); pw != "" {
		return pw, nil
	}
	prompt := promptui.Prompt{
		Label: "Password for " + path,
		Mask:  '*',
	}
	return prompt.Run()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution error: %v", err)
		os.Exit(1)
	}
}

func init() {
	// Add subcommands
	rootCmd.AddCommand(profileCmd)
}
