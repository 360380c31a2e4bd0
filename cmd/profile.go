package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/Rorical/RoriGate/internal/config"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage server profiles",
	Long:  `Manage profiles for the approval servers you connect to.`,
}

var listProfilesCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		fmt.Printf("Active Profile: %s\n\n", color.GreenString("%s", cfg.ActiveProfile))
		fmt.Println("Available Profiles:")
		for _, name := range cfg.ProfileNames() {
			profile := cfg.Profiles[name]
			marker := ""
			if name == cfg.ActiveProfile {
				marker = color.GreenString(" (active)")
			}
			fmt.Printf("  %s%s\n", name, marker)
			fmt.Printf("    Server: %s\n", profile.ServerURL)
			fmt.Println()
		}
		return nil
	},
}

var showProfileCmd = &cobra.Command{
	Use:   "show [profile-name]",
	Short: "Show profile details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		profileName := args[0]
		if err := cfg.UseProfile(profileName); err != nil {
			return err
		}
		ws, err := cfg.WebSocketURL()
		if err != nil {
			ws = color.RedString("%v", err)
		}
		r := cfg.ReconnectPolicy()
		attempts := "unlimited"
		if r.MaxAttempts > 0 {
			attempts = fmt.Sprint(r.MaxAttempts)
		}

		fmt.Printf("Profile: %s\n", profileName)
		fmt.Printf("Server URL: %s\n", cfg.BaseURL())
		fmt.Printf("Push channel: %s\n", ws)
		fmt.Printf("Request timeout: %s\n", cfg.RequestTimeout())
		fmt.Printf("Reconnect: %s to %s, %s attempts\n", r.InitialDelay.Std(), r.MaxDelay.Std(), attempts)
		fmt.Printf("Log level: %s\n", cfg.LogLevel())
		return nil
	},
}

func validateServerURL(s string) error {
	_, err := config.WebSocketURL(s)
	return err
}

func validateDuration(s string) error {
	if s == "" {
		return nil
	}
	_, err := time.ParseDuration(s)
	return err
}

// promptProfile asks for every profile field, starting from current.
func promptProfile(current config.Profile) (config.Profile, error) {
	profile := current

	serverPrompt := promptui.Prompt{
		Label:    "Server URL",
		Default:  current.ServerURL,
		Validate: validateServerURL,
	}
	serverURL, err := serverPrompt.Run()
	if err != nil {
		return profile, err
	}
	profile.ServerURL = serverURL

	timeoutDefault := ""
	if current.RequestTimeout > 0 {
		timeoutDefault = current.RequestTimeout.Std().String()
	}
	timeoutPrompt := promptui.Prompt{
		Label:    "Request timeout (e.g. 10s, empty for default)",
		Default:  timeoutDefault,
		Validate: validateDuration,
	}
	timeout, err := timeoutPrompt.Run()
	if err != nil {
		return profile, err
	}
	profile.RequestTimeout = 0
	if timeout != "" {
		d, _ := time.ParseDuration(timeout)
		profile.RequestTimeout = config.Duration(d)
	}

	levelPrompt := promptui.Select{
		Label: "Log level",
		Items: []string{"info", "debug", "warn", "error"},
	}
	_, profile.LogLevel, err = levelPrompt.Run()
	if err != nil {
		return profile, err
	}
	return profile, nil
}

func selectProfile(cfg *config.Config, label string, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	profileNames := cfg.ProfileNames()
	if len(profileNames) == 0 {
		return "", fmt.Errorf("no profiles available")
	}
	prompt := promptui.Select{
		Label: label,
		Items: profileNames,
	}
	_, name, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("selection failed: %w", err)
	}
	return name, nil
}

var addProfileCmd = &cobra.Command{
	Use:   "add [profile-name]",
	Short: "Add a new profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
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
				return fmt.Errorf("prompt failed: %w", err)
			}
		}

		if _, exists := cfg.Profiles[profileName]; exists {
			return fmt.Errorf("profile '%s' already exists", profileName)
		}

		profile, err := promptProfile(config.DefaultProfile())
		if err != nil {
			return fmt.Errorf("prompt failed: %w", err)
		}
		cfg.Profiles[profileName] = profile

		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Println(color.GreenString("Profile '%s' added successfully!", profileName))
		return nil
	},
}

var editProfileCmd = &cobra.Command{
	Use:   "edit [profile-name]",
	Short: "Edit an existing profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		profileName, err := selectProfile(cfg, "Select profile to edit", args)
		if err != nil {
			return err
		}
		current, exists := cfg.Profiles[profileName]
		if !exists {
			return fmt.Errorf("profile '%s' does not exist", profileName)
		}

		profile, err := promptProfile(current)
		if err != nil {
			return fmt.Errorf("prompt failed: %w", err)
		}
		cfg.Profiles[profileName] = profile

		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Println(color.GreenString("Profile '%s' updated successfully!", profileName))
		return nil
	},
}

var removeProfileCmd = &cobra.Command{
	Use:     "remove [profile-name]",
	Aliases: []string{"delete"},
	Short:   "Remove a profile",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		profileName, err := selectProfile(cfg, "Select profile to remove", args)
		if err != nil {
			return err
		}
		if _, exists := cfg.Profiles[profileName]; !exists {
			return fmt.Errorf("profile '%s' does not exist", profileName)
		}

		confirmPrompt := promptui.Prompt{
			Label:     fmt.Sprintf("Remove profile '%s'", profileName),
			IsConfirm: true,
		}
		if _, err := confirmPrompt.Run(); err != nil {
			fmt.Println("Removal cancelled")
			return nil
		}

		removeProfile(cfg, profileName)

		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Println(color.GreenString("Profile '%s' removed successfully!", profileName))
		return nil
	},
}

// removeProfile deletes name, moving the active profile elsewhere and
// recreating the default profile when the last one goes.
func removeProfile(cfg *config.Config, name string) {
	delete(cfg.Profiles, name)
	if len(cfg.Profiles) == 0 {
		cfg.Profiles["default"] = config.DefaultProfile()
	}
	if cfg.ActiveProfile == name {
		cfg.ActiveProfile = cfg.ProfileNames()[0]
	}
}

var switchProfileCmd = &cobra.Command{
	Use:   "switch [profile-name]",
	Short: "Switch to a different profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		profileName, err := selectProfile(cfg, "Select profile to switch to", args)
		if err != nil {
			return err
		}
		if _, exists := cfg.Profiles[profileName]; !exists {
			return fmt.Errorf("profile '%s' does not exist", profileName)
		}

		cfg.ActiveProfile = profileName
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Printf("Switched to profile '%s'\n", color.GreenString("%s", profileName))
		return nil
	},
}

func init() {
	// Add subcommands to profile
	profileCmd.AddCommand(listProfilesCmd)
	profileCmd.AddCommand(showProfileCmd)
	profileCmd.AddCommand(addProfileCmd)
	profileCmd.AddCommand(editProfileCmd)
	profileCmd.AddCommand(removeProfileCmd)
	profileCmd.AddCommand(switchProfileCmd)
}
