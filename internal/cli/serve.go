package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/mealbook/internal/diary"
	"github.com/mesh-intelligence/mealbook/internal/server"
	"github.com/mesh-intelligence/mealbook/internal/sqlite"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the diary and workbook export over HTTP",
		Long: `Serve starts the HTTP API on --addr (default: server.addr from config).

Routes:
  GET    /healthz
  POST   /api/export-excel
  GET    /api/meals?start=&end=
  POST   /api/meals
  GET    /api/meals/{date}
  DELETE /api/meals/{date}
  POST   /api/meals/migrate
  POST   /api/meals/copy
  POST   /api/meals/apply`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.GetString(cfgKeyServerAddr)
			}
			e, err := a.exporter()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return a.withService(func(b *sqlite.Backend, svc *diary.Service) error {
				srv := server.New(server.Options{
					Store:       b,
					Service:     svc,
					Exporter:    e,
					Logger:      a.log,
					CORSOrigins: a.cfg.GetStringSlice(cfgKeyCORSOrigins),
				})
				a.log.Info("serving", zap.String("addr", addr),
					zap.String("data_dir", b.DataDir()), zap.String("export_dir", e.Dir()))
				if err := srv.ListenAndServe(ctx, addr); err != nil {
					return sysErr(err)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address")
	return cmd
}
