package commands

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"warden/internal/domain"
	"warden/internal/simclient"
)

func probeCmd() *cobra.Command {
	var (
		server   string
		account  uint32
		platform string
		secret   string
		checks   int
		timeout  time.Duration
		opts     simclient.Options
		suite    string
	)
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Connect to a server as a reference client",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := hex.DecodeString(secret)
			if err != nil || len(key) == 0 {
				return fmt.Errorf("secret: hex session secret required")
			}
			u, err := url.Parse(server)
			if err != nil {
				return err
			}
			q := u.Query()
			q.Set("account", strconv.FormatUint(uint64(account), 10))
			q.Set("platform", platform)
			u.RawQuery = q.Encode()

			opts.Suite = domain.CipherSuite(strings.ToLower(suite))
			client, err := simclient.New(key, opts)
			if err != nil {
				return err
			}

			conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
			if err != nil {
				if resp != nil {
					resp.Body.Close()
					return fmt.Errorf("dial: %w (status %d)", err, resp.StatusCode)
				}
				return fmt.Errorf("dial: %w", err)
			}
			defer conn.Close()

			log := logger.Named("probe")
			for client.ChecksAnswered() < checks {
				_ = conn.SetReadDeadline(time.Now().Add(timeout))
				_, frame, err := conn.ReadMessage()
				if err != nil {
					return fmt.Errorf("after %d checks: %w", client.ChecksAnswered(), err)
				}
				replies, err := client.Handle(frame)
				if err != nil {
					return err
				}
				for _, r := range replies {
					if err := conn.WriteMessage(websocket.BinaryMessage, r); err != nil {
						return err
					}
				}
				log.Debug("frame handled", zap.Int("replies", len(replies)), zap.Bool("verified", client.Rotated()))
			}
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			fmt.Fprintf(cmd.OutOrStdout(), "Verified: %v, checks answered: %d\n", client.Rotated(), client.ChecksAnswered())
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&server, "url", "ws://127.0.0.1:8085/warden", "server endpoint")
	f.Uint32Var(&account, "account", 1, "account id")
	f.StringVar(&platform, "platform", "OSX", "client platform")
	f.StringVar(&secret, "secret", "", "hex session secret")
	f.IntVar(&checks, "checks", 1, "check requests to answer before disconnecting")
	f.DurationVar(&timeout, "timeout", 2*time.Minute, "read timeout per frame")
	f.StringVar(&suite, "cipher", "rc4", "stream cipher suite")
	f.BoolVar(&opts.Cached, "cached", false, "claim the module is already cached")
	f.BoolVar(&opts.TamperHash, "tamper-hash", false, "corrupt the challenge digest")
	f.BoolVar(&opts.TamperChecks, "tamper-checks", false, "corrupt check results")
	return cmd
}
