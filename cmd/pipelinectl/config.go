package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read or write domain configuration stored alongside the features",
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the value of a config key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		value, err := st.GetConfig(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("get config %s: %w", args[0], err)
		}
		fmt.Println(value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.SetConfig(context.Background(), args[0], args[1]); err != nil {
			return fmt.Errorf("set config %s: %w", args[0], err)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd)
}
