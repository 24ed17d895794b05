package main

import (
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"hark/audio"
)

func newDevicesCmd() *cobra.Command {
	var selectFlag bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List capture devices",
		Long: `List the capture devices hark can record from. The index, ID or name
(or part of it) can be used as recording.device in the configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			actx, err := audio.NewContext()
			if err != nil {
				return fmt.Errorf("initializing audio: %w", err)
			}
			defer actx.Close()

			if selectFlag {
				idx, dev, err := audio.SelectDevice(actx)
				if err != nil {
					return err
				}
				return printDeviceSnippet(cmd, idx, dev)
			}

			devices, err := actx.Devices()
			if err != nil {
				return fmt.Errorf("enumerating devices: %w", err)
			}
			if len(devices) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No capture devices found")
				return nil
			}
			for i, d := range devices {
				fmt.Fprintf(cmd.OutOrStdout(), "%3d  %s\n     %s\n", i, d.Name, d.ID)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&selectFlag, "select", false, "pick a device interactively and print its config entry")
	return cmd
}

func printDeviceSnippet(cmd *cobra.Command, idx int, dev *audio.DeviceInfo) error {
	out, err := yaml.Marshal(map[string]map[string]any{
		"recording": {"device": dev.Name},
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n# device %d\n%s", idx, out)
	return nil
}
