package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"fieldline/internal/app"
	"fieldline/internal/config"
	"fieldline/internal/db"
	"fieldline/internal/domain"
	"fieldline/internal/engine"
	"fieldline/internal/repo"
	"fieldline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "fl",
	Short: "Fieldline CLI",
	Long: `Fieldline coordinates field-service work orders across dispatchers, field
admins, crews and the warehouse:
- Tasks: work orders with an address, work type and lifecycle dates; assigning
  a crew moves them to in_progress.
- Reports: a crew's account of the work; a report with comment, access note,
  photos and materials completes its task.
- Stock: the central warehouse and per-crew holdings; every movement lands in
  the warehouse log.
- Event log: diary of changes, view with 'fl log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initViper)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initViper() {
	viper.SetEnvPrefix("FIELDLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(stockCmd())
	rootCmd.AddCommand(brigadeCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage workspace config"}
	cfg.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	})
	cfg.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSONOrTable(c)
		},
	})
	cfg.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if err := c.Validate(); err != nil {
				return err
			}
			fmt.Println("config ok")
			return nil
		},
	})
	return cfg
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Task counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				counts, err := a.Repo.CountTasksByStatus(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(counts)
			})
		},
	}
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{Use: "task", Short: "Manage tasks"}
	task.AddCommand(taskCreateCmd())
	task.AddCommand(taskListCmd())
	task.AddCommand(taskShowCmd())
	task.AddCommand(taskUpdateCmd())
	task.AddCommand(taskAssignCmd())
	task.AddCommand(taskCompleteCmd())
	return task
}

func taskCreateCmd() *cobra.Command {
	var address, workType, description, accessInfo, brigade, admin string
	var floors, entrances int
	var urgent bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := a.Engine.CreateTask(ctx, viper.GetString("actor-id"), engine.CreateTaskInput{
					Address:         address,
					Floors:          floors,
					Entrances:       entrances,
					WorkType:        workType,
					Description:     description,
					AccessInfo:      accessInfo,
					Urgent:          urgent,
					AssignedBrigade: optionalString(brigade),
					AssignedAdmin:   optionalString(admin),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "site address")
	cmd.Flags().StringVar(&workType, "work-type", "", "work type")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&accessInfo, "access", "", "access info")
	cmd.Flags().StringVar(&brigade, "brigade", "", "assigned brigade")
	cmd.Flags().StringVar(&admin, "admin", "", "assigned field admin")
	cmd.Flags().IntVar(&floors, "floors", 0, "floors")
	cmd.Flags().IntVar(&entrances, "entrances", 0, "entrances")
	cmd.Flags().BoolVar(&urgent, "urgent", false, "urgent")
	_ = cmd.MarkFlagRequired("address")
	_ = cmd.MarkFlagRequired("work-type")
	return cmd
}

func taskListCmd() *cobra.Command {
	var status, brigade string
	var urgent bool
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				tasks, err := a.Repo.ListTasks(ctx, repo.TaskFilters{
					Status:     status,
					Brigade:    brigade,
					UrgentOnly: urgent,
					Limit:      limit,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Address", "Type", "Status", "Brigade", "Urgent"})
				for _, t := range tasks {
					tw.AppendRow(table.Row{t.ID, t.Address, t.WorkType, t.Status, deref(t.AssignedBrigade), t.Urgent})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().StringVar(&brigade, "brigade", "", "brigade filter")
	cmd.Flags().BoolVar(&urgent, "urgent", false, "urgent only")
	cmd.Flags().IntVar(&limit, "limit", 0, "max rows")
	return cmd
}

func taskShowCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := a.Repo.GetTask(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "task id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func taskUpdateCmd() *cobra.Command {
	var id int64
	var address, workType, description, accessInfo, status string
	var urgent bool
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update task fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := engine.UpdateTaskInput{}
			if cmd.Flags().Changed("address") {
				in.Address = &address
			}
			if cmd.Flags().Changed("work-type") {
				in.WorkType = &workType
			}
			if cmd.Flags().Changed("description") {
				in.Description = &description
			}
			if cmd.Flags().Changed("access") {
				in.AccessInfo = &accessInfo
			}
			if cmd.Flags().Changed("status") {
				in.Status = &status
			}
			if cmd.Flags().Changed("urgent") {
				in.Urgent = &urgent
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := a.Engine.UpdateTask(ctx, viper.GetString("actor-id"), id, in)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "task id")
	cmd.Flags().StringVar(&address, "address", "", "site address")
	cmd.Flags().StringVar(&workType, "work-type", "", "work type")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&accessInfo, "access", "", "access info")
	cmd.Flags().StringVar(&status, "status", "", "status")
	cmd.Flags().BoolVar(&urgent, "urgent", false, "urgent")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func taskAssignCmd() *cobra.Command {
	var id int64
	var brigade, admin string
	var clearBrigade, clearAdmin bool
	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Assign a task to a brigade or admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := engine.UpdateTaskInput{ClearBrigade: clearBrigade, ClearAdmin: clearAdmin}
			if cmd.Flags().Changed("brigade") {
				in.AssignedBrigade = &brigade
			}
			if cmd.Flags().Changed("admin") {
				in.AssignedAdmin = &admin
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := a.Engine.UpdateTask(ctx, viper.GetString("actor-id"), id, in)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "task id")
	cmd.Flags().StringVar(&brigade, "brigade", "", "brigade id")
	cmd.Flags().StringVar(&admin, "admin", "", "admin id")
	cmd.Flags().BoolVar(&clearBrigade, "clear-brigade", false, "unassign brigade")
	cmd.Flags().BoolVar(&clearAdmin, "clear-admin", false, "unassign admin")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func taskCompleteCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Mark a task completed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := a.Engine.CompleteTask(ctx, viper.GetString("actor-id"), id)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "task id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func reportCmd() *cobra.Command {
	rep := &cobra.Command{Use: "report", Short: "Manage reports"}
	rep.AddCommand(reportSubmitCmd())
	rep.AddCommand(reportListCmd())
	return rep
}

func reportSubmitCmd() *cobra.Command {
	var taskID int64
	var brigade, comment, access string
	var photos, materials []string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a field report",
		Long:  "Materials are name=quantity pairs, e.g. --material 'Cable VOK 4=120'.",
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := parseMaterials(materials)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				res, err := a.Engine.SubmitReport(ctx, brigade, engine.SubmitReportInput{
					TaskID:    taskID,
					Comment:   comment,
					Access:    access,
					Photos:    photos,
					Materials: lines,
				})
				if err != nil {
					return err
				}
				if !res.Complete {
					fmt.Println("report stored; task not completed (comment, access, photos and materials are all required)")
				}
				return printJSONOrTable(res)
			})
		},
	}
	cmd.Flags().Int64Var(&taskID, "task", 0, "task id")
	cmd.Flags().StringVar(&brigade, "brigade", "", "reporting brigade")
	cmd.Flags().StringVar(&comment, "comment", "", "work comment")
	cmd.Flags().StringVar(&access, "access", "", "access note")
	cmd.Flags().StringArrayVar(&photos, "photo", nil, "photo reference (repeatable)")
	cmd.Flags().StringArrayVar(&materials, "material", nil, "material name=quantity (repeatable)")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("brigade")
	return cmd
}

func reportListCmd() *cobra.Command {
	var taskID int64
	var brigade string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				reports, err := a.Repo.ListReports(ctx, repo.ReportFilters{TaskID: taskID, Brigade: brigade, Limit: limit})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(reports)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Task", "Brigade", "Photos", "Materials", "Date"})
				for _, r := range reports {
					tw.AppendRow(table.Row{r.ID, r.TaskID, r.Brigade, len(r.Photos), len(r.Materials), r.CreatedDate})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&taskID, "task", 0, "task filter")
	cmd.Flags().StringVar(&brigade, "brigade", "", "brigade filter")
	cmd.Flags().IntVar(&limit, "limit", 0, "max rows")
	return cmd
}

func stockCmd() *cobra.Command {
	stock := &cobra.Command{Use: "stock", Short: "Manage inventory"}
	stock.AddCommand(stockListCmd())
	stock.AddCommand(stockBrigadeCmd())
	stock.AddCommand(stockTransferCmd())
	stock.AddCommand(stockAdjustCmd())
	stock.AddCommand(stockLogCmd())
	return stock
}

func stockListCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List warehouse stock",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Repo.ListWarehouseStock(ctx, kind)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Item", "Kind", "Unit", "Quantity"})
				for _, s := range items {
					tw.AppendRow(table.Row{s.Item, s.Kind, s.Unit, s.Quantity})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "material or tool")
	return cmd
}

func stockBrigadeCmd() *cobra.Command {
	var brigade, kind string
	cmd := &cobra.Command{
		Use:   "brigade",
		Short: "List brigade holdings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Repo.ListBrigadeStock(ctx, brigade, kind)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Brigade", "Item", "Kind", "Quantity"})
				for _, s := range items {
					tw.AppendRow(table.Row{s.Brigade, s.Item, s.Kind, s.Quantity})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&brigade, "brigade", "", "brigade filter")
	cmd.Flags().StringVar(&kind, "kind", "", "material or tool")
	return cmd
}

func stockTransferCmd() *cobra.Command {
	var brigade, item, kind string
	var quantity float64
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Issue stock to a brigade",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				s, err := a.Engine.TransferToBrigade(ctx, viper.GetString("actor-id"), brigade, item, kind, quantity)
				if err != nil {
					return err
				}
				fmt.Printf("issued %.2f of %s to %s; warehouse now holds %.2f\n", quantity, item, brigade, s.Quantity)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&brigade, "brigade", "", "receiving brigade")
	cmd.Flags().StringVar(&item, "item", "", "item name")
	cmd.Flags().StringVar(&kind, "kind", domain.StockMaterial, "material or tool")
	cmd.Flags().Float64Var(&quantity, "quantity", 0, "quantity to issue")
	_ = cmd.MarkFlagRequired("brigade")
	_ = cmd.MarkFlagRequired("item")
	_ = cmd.MarkFlagRequired("quantity")
	return cmd
}

func stockAdjustCmd() *cobra.Command {
	var item, kind, unit string
	var delta float64
	cmd := &cobra.Command{
		Use:   "adjust",
		Short: "Adjust warehouse stock (receipts and corrections)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				s, err := a.Engine.AdjustWarehouseStock(ctx, viper.GetString("actor-id"), item, kind, unit, delta)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	cmd.Flags().StringVar(&item, "item", "", "item name")
	cmd.Flags().StringVar(&kind, "kind", domain.StockMaterial, "material or tool")
	cmd.Flags().StringVar(&unit, "unit", "", "unit of measure")
	cmd.Flags().Float64Var(&delta, "delta", 0, "signed quantity change")
	_ = cmd.MarkFlagRequired("item")
	_ = cmd.MarkFlagRequired("delta")
	return cmd
}

func stockLogCmd() *cobra.Command {
	var kind, operation, brigade, item string
	var limit int
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the warehouse movement log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				entries, err := a.Repo.ListWarehouseLog(ctx, repo.LogFilters{
					Kind:      kind,
					Operation: operation,
					Brigade:   brigade,
					Item:      item,
					Limit:     limit,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(entries)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Operation", "Item", "Quantity", "Brigade", "Date"})
				for _, e := range entries {
					tw.AppendRow(table.Row{e.ID, e.Operation, e.Item, e.Quantity, deref(e.Brigade), e.Date})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "material or tool")
	cmd.Flags().StringVar(&operation, "operation", "", "operation filter")
	cmd.Flags().StringVar(&brigade, "brigade", "", "brigade filter")
	cmd.Flags().StringVar(&item, "item", "", "item filter")
	cmd.Flags().IntVar(&limit, "limit", 50, "max rows")
	return cmd
}

func brigadeCmd() *cobra.Command {
	brig := &cobra.Command{Use: "brigade", Short: "Manage brigades"}
	brig.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List brigades",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				brigades, err := a.Repo.ListBrigades(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(brigades)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Phone", "Status"})
				for _, b := range brigades {
					tw.AppendRow(table.Row{b.ID, b.Name, b.Phone, b.Status})
				}
				tw.Render()
				return nil
			})
		},
	})
	brig.AddCommand(brigadeStatusCmd())
	return brig
}

func brigadeStatusCmd() *cobra.Command {
	var id, status string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Set brigade status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				b, err := a.Engine.SetBrigadeStatus(ctx, viper.GetString("actor-id"), id, status)
				if err != nil {
					return err
				}
				return printJSONOrTable(b)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "brigade id")
	cmd.Flags().StringVar(&status, "status", "", "new status")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func logCmd() *cobra.Command {
	logroot := &cobra.Command{Use: "log", Short: "Audit event log"}
	logroot.AddCommand(logTailCmd())
	return logroot
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				events, err := a.Repo.LatestEvents(ctx, n, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Open(cmd.Context(), viper.GetString("workspace"))
			if err != nil {
				return err
			}
			defer a.Close()
			authCfg := server.AuthConfig{JWTSecret: os.Getenv("FIELDLINE_JWT_SECRET")}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("FIELDLINE_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{Engine: a.Engine, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Fieldline API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	a, err := app.Open(ctx, viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func parseMaterials(pairs []string) ([]domain.MaterialLine, error) {
	var lines []domain.MaterialLine
	for _, pair := range pairs {
		name, qty, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("material %q: expected name=quantity", pair)
		}
		var q float64
		if _, err := fmt.Sscanf(strings.TrimSpace(qty), "%g", &q); err != nil {
			return nil, fmt.Errorf("material %q: bad quantity: %w", pair, err)
		}
		lines = append(lines, domain.MaterialLine{Name: strings.TrimSpace(name), Quantity: q})
	}
	return lines, nil
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
