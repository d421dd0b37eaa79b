package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-motionblend/pkg/client"
	"github.com/teslashibe/go-motionblend/pkg/protocol"
)

var watchFlags struct {
	url string
	raw bool
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a server's frame stream",
	Long:  `Connects to /ws/frames and prints one line per streamed message.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := client.New(watchFlags.url)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		err = c.Stream(ctx, func(msg *protocol.Message) error {
			if watchFlags.raw {
				data, err := msg.Bytes()
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}
			printMessage(msg)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func printMessage(msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeFrame:
		f, err := msg.GetFrameData()
		if err != nil {
			return
		}
		fmt.Printf("frame  %-10s %s %d/%d %-12s w=%.3f\n", f.Source, f.ID, f.Index+1, f.Total, f.State, f.Weight)
	case protocol.TypeTransition:
		t, err := msg.GetTransitionData()
		if err != nil {
			return
		}
		fmt.Printf("transition %s: %d frames, smoothness %.3f, naturalness %.3f\n",
			t.ID, t.Frames, t.Metrics.Smoothness, t.Metrics.Naturalness)
	case protocol.TypeError:
		e, err := msg.GetErrorData()
		if err != nil {
			return
		}
		fmt.Printf("error  %s: %s\n", e.Code, e.Message)
	default:
		fmt.Printf("%s\n", msg.Type)
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchFlags.url, "url", "http://localhost:8080", "Server base URL")
	watchCmd.Flags().BoolVar(&watchFlags.raw, "raw", false, "Print raw JSON messages")
}
