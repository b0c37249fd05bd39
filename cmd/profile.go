package cmd

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/Rorical/whitelist-dapp/internal/chain"
	"github.com/Rorical/whitelist-dapp/internal/config"
	"github.com/Rorical/whitelist-dapp/internal/wallet"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage wallet profiles",
	Long:  `Manage wallet profiles: RPC endpoint, expected network, signing key and contract address.`,
}

var listProfilesCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		fmt.Printf("Active Profile: %s\n\n", cfg.ActiveProfile)
		fmt.Println("Available Profiles:")
		for _, name := range profileNames(cfg, "") {
			profile := cfg.Profiles[name]
			marker := ""
			if name == cfg.ActiveProfile {
				marker = " (active)"
			}
			fmt.Printf("  %s%s\n", name, marker)
			fmt.Printf("    Network: %s\n", wallet.NetworkFor(chainIDOrDefault(profile)))
			if profile.ContractAddress != "" {
				fmt.Printf("    Contract: %s\n", profile.ContractAddress)
			}
			fmt.Printf("    Signer: %s\n", signerSummary(profile))
			fmt.Println()
		}
	},
}

var showProfileCmd = &cobra.Command{
	Use:   "show [profile-name]",
	Short: "Show profile details",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		profileName := args[0]
		profile, exists := cfg.Profiles[profileName]
		if !exists {
			log.Fatalf("Profile '%s' does not exist", profileName)
		}

		fmt.Printf("Profile: %s\n", profileName)
		fmt.Printf("RPC URL: %s\n", profile.RPCURL)
		fmt.Printf("Network: %s\n", wallet.NetworkFor(chainIDOrDefault(profile)))
		fmt.Printf("Contract: %s\n", profile.ContractAddress)
		fmt.Printf("Signer: %s\n", signerSummary(profile))
		if profile.GasFeeCap > 0 || profile.GasTipCap > 0 {
			fmt.Printf("Gas: fee cap %d wei, tip cap %d wei\n", profile.GasFeeCap, profile.GasTipCap)
		}
	},
}

var addProfileCmd = &cobra.Command{
	Use:   "add [profile-name]",
	Short: "Add a new profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		var profileName string
		if len(args) > 0 {
			profileName = args[0]
		} else {
			prompt := promptui.Prompt{
				Label: "Profile name",
			}
			profileName, err = prompt.Run()
			if err != nil {
				log.Fatalf("Prompt failed: %v", err)
			}
		}

		if _, exists := cfg.Profiles[profileName]; exists {
			log.Fatalf("Profile '%s' already exists", profileName)
		}

		profile, err := promptProfile(config.DefaultProfile())
		if err != nil {
			log.Fatalf("Prompt failed: %v", err)
		}

		// Add profile to config
		cfg.Profiles[profileName] = profile

		// Save config
		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Printf("Profile '%s' added successfully!\n", profileName)
	},
}

var editProfileCmd = &cobra.Command{
	Use:   "edit [profile-name]",
	Short: "Edit an existing profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		profileName := selectProfile(cfg, args, "Select profile to edit", "")

		profile, exists := cfg.Profiles[profileName]
		if !exists {
			log.Fatalf("Profile '%s' does not exist", profileName)
		}

		profile, err = promptProfile(profile)
		if err != nil {
			log.Fatalf("Prompt failed: %v", err)
		}

		// Update profile in config
		cfg.Profiles[profileName] = profile

		// Save config
		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Printf("Profile '%s' updated successfully!\n", profileName)
	},
}

var deleteProfileCmd = &cobra.Command{
	Use:   "delete [profile-name]",
	Short: "Delete a profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		profileName := selectProfile(cfg, args, "Select profile to delete", "")

		if _, exists := cfg.Profiles[profileName]; !exists {
			log.Fatalf("Profile '%s' does not exist", profileName)
		}

		// Confirm deletion
		confirmPrompt := promptui.Prompt{
			Label:     fmt.Sprintf("Delete profile '%s'? (y/N)", profileName),
			IsConfirm: true,
		}
		_, err = confirmPrompt.Run()
		if err != nil {
			fmt.Println("Deletion cancelled")
			return
		}

		removeProfile(cfg, profileName)

		// Save config
		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Printf("Profile '%s' deleted successfully!\n", profileName)
	},
}

var switchProfileCmd = &cobra.Command{
	Use:   "switch [profile-name]",
	Short: "Switch to a different profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		if len(args) == 0 && len(profileNames(cfg, cfg.ActiveProfile)) == 0 {
			fmt.Println("No other profiles available to switch to")
			return
		}
		profileName := selectProfile(cfg, args, "Select profile to switch to", cfg.ActiveProfile)

		if _, exists := cfg.Profiles[profileName]; !exists {
			log.Fatalf("Profile '%s' does not exist", profileName)
		}

		cfg.ActiveProfile = profileName

		// Save config
		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Printf("Switched to profile '%s'\n", profileName)
	},
}

// profileNames lists profile names in order, leaving out skip.
func profileNames(cfg *config.Config, skip string) []string {
	names := make([]string, 0, len(cfg.Profiles))
	for name := range cfg.Profiles {
		if name != skip {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func selectProfile(cfg *config.Config, args []string, label, skip string) string {
	if len(args) > 0 {
		return args[0]
	}

	names := profileNames(cfg, skip)
	if len(names) == 0 {
		log.Fatalf("No profiles available")
	}

	prompt := promptui.Select{
		Label: label,
		Items: names,
	}
	_, name, err := prompt.Run()
	if err != nil {
		log.Fatalf("Selection failed: %v", err)
	}
	return name
}

// removeProfile deletes name, moving the active profile elsewhere and
// recreating an empty default when it was the last one.
func removeProfile(cfg *config.Config, name string) {
	delete(cfg.Profiles, name)
	if cfg.ActiveProfile != name {
		return
	}
	if remaining := profileNames(cfg, ""); len(remaining) > 0 {
		cfg.ActiveProfile = remaining[0]
		return
	}
	cfg.ActiveProfile = "default"
	cfg.Profiles["default"] = config.DefaultProfile()
}

func promptProfile(p config.Profile) (config.Profile, error) {
	var err error

	rpcPrompt := promptui.Prompt{
		Label:   "RPC URL",
		Default: p.RPCURL,
		Validate: func(s string) error {
			if s == "" {
				return errors.New("RPC URL is required")
			}
			return nil
		},
	}
	if p.RPCURL, err = rpcPrompt.Run(); err != nil {
		return p, err
	}

	chainPrompt := promptui.Prompt{
		Label:    "Chain ID",
		Default:  strconv.FormatUint(chainIDOrDefault(p), 10),
		Validate: validateChainID,
	}
	chainID, err := chainPrompt.Run()
	if err != nil {
		return p, err
	}
	p.ChainID, _ = strconv.ParseUint(chainID, 10, 64)

	contractPrompt := promptui.Prompt{
		Label:    "Whitelist contract address",
		Default:  p.ContractAddress,
		Validate: validateAddress,
	}
	if p.ContractAddress, err = contractPrompt.Run(); err != nil {
		return p, err
	}

	signerSelect := promptui.Select{
		Label: "Signer",
		Items: []string{"Private key", "Keystore file"},
	}
	choice, _, err := signerSelect.Run()
	if err != nil {
		return p, err
	}

	if choice == 0 {
		keyPrompt := promptui.Prompt{
			Label:    "Private key",
			Default:  p.PrivateKey,
			Mask:     '*',
			Validate: validatePrivateKey,
		}
		if p.PrivateKey, err = keyPrompt.Run(); err != nil {
			return p, err
		}
		p.KeystorePath = ""
	} else {
		pathPrompt := promptui.Prompt{
			Label:   "Keystore file",
			Default: p.KeystorePath,
		}
		if p.KeystorePath, err = pathPrompt.Run(); err != nil {
			return p, err
		}
		p.PrivateKey = ""
	}
	return p, nil
}

func chainIDOrDefault(p config.Profile) uint64 {
	if p.ChainID == 0 {
		return config.DefaultChainID
	}
	return p.ChainID
}

func validateChainID(s string) error {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return errors.New("chain ID must be a positive integer")
	}
	return nil
}

func validateAddress(s string) error {
	if !common.IsHexAddress(s) {
		return errors.New("not a hex address")
	}
	return nil
}

func validatePrivateKey(s string) error {
	_, err := chain.ParsePrivateKey(s)
	return err
}

// signerSummary never prints key material.
func signerSummary(p config.Profile) string {
	switch {
	case p.PrivateKey != "":
		account, err := chain.ParsePrivateKey(p.PrivateKey)
		if err != nil {
			return "private key (invalid)"
		}
		return "private key for " + account.Address().Hex()
	case p.KeystorePath != "":
		return "keystore " + p.KeystorePath
	default:
		return "not set"
	}
}

func init() {
	// Add subcommands to profile
	profileCmd.AddCommand(listProfilesCmd)
	profileCmd.AddCommand(showProfileCmd)
	profileCmd.AddCommand(addProfileCmd)
	profileCmd.AddCommand(editProfileCmd)
	profileCmd.AddCommand(deleteProfileCmd)
	profileCmd.AddCommand(switchProfileCmd)
}
