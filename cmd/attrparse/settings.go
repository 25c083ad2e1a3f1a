package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// Flag values win over attrparse.toml only when given explicitly.

func stringSetting(cmd *cobra.Command, flag, fromConfig string) (string, error) {
	v, err := cmd.Flags().GetString(flag)
	if err != nil {
		return "", fmt.Errorf("failed to get %s flag: %w", flag, err)
	}
	if cmd.Flags().Changed(flag) || fromConfig == "" {
		return v, nil
	}
	return fromConfig, nil
}

func intSetting(cmd *cobra.Command, flag string, fromConfig int) (int, error) {
	v, err := cmd.Flags().GetInt(flag)
	if err != nil {
		return 0, fmt.Errorf("failed to get %s flag: %w", flag, err)
	}
	if cmd.Flags().Changed(flag) {
		return v, nil
	}
	return fromConfig, nil
}

func boolSetting(cmd *cobra.Command, flag string, fromConfig bool) (bool, error) {
	v, err := cmd.Flags().GetBool(flag)
	if err != nil {
		return false, fmt.Errorf("failed to get %s flag: %w", flag, err)
	}
	if cmd.Flags().Changed(flag) {
		return v, nil
	}
	return fromConfig || v, nil
}

func durationSetting(cmd *cobra.Command, flag string, fromConfig time.Duration) (time.Duration, error) {
	v, err := cmd.Flags().GetDuration(flag)
	if err != nil {
		return 0, fmt.Errorf("failed to get %s flag: %w", flag, err)
	}
	if cmd.Flags().Changed(flag) {
		return v, nil
	}
	return fromConfig, nil
}
