package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/GwydionBr/life-manager/internal/models"
	"github.com/GwydionBr/life-manager/internal/repository"
)

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Manage clients",
}

var clientAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a client",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		env := mustSetup()
		defer env.Close()

		c, err := repository.NewClientRepo(env.db).Create(strings.TrimSpace(args[0]))
		if err != nil {
			env.fail(err)
		}
		fmt.Printf("Created client %s (%s)\n", c.Name, c.ID)
	},
}

var clientListCmd = &cobra.Command{
	Use:   "list",
	Short: "List clients",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		env := mustSetup()
		defer env.Close()

		clients, err := repository.NewClientRepo(env.db).GetAllWithStats()
		if err != nil {
			env.fail(err)
		}
		if len(clients) == 0 {
			fmt.Println("No clients yet.")
			return
		}

		rows := make([][]string, 0, len(clients))
		for _, c := range clients {
			rows = append(rows, []string{
				c.Name,
				fmt.Sprintf("%d", c.ProjectCount),
				fmt.Sprintf("%d", c.SessionCount),
				c.ID,
			})
		}
		printTable(os.Stdout, []string{"NAME", "PROJECTS", "SESSIONS", "ID"}, rows)
	},
}

var clientRmCmd = &cobra.Command{
	Use:   "rm <name|id>",
	Short: "Delete a client; its projects are kept without a client",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		env := mustSetup()
		defer env.Close()

		repo := repository.NewClientRepo(env.db)
		c, err := findClient(repo, args[0])
		if err != nil {
			env.fail(err)
		}
		if err := repo.Delete(c.ID); err != nil {
			env.fail(err)
		}
		fmt.Printf("Deleted client %s\n", c.Name)
	},
}

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a project",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		env := mustSetup()
		defer env.Close()

		rateFlag, _ := cmd.Flags().GetString("rate")
		fixed, _ := cmd.Flags().GetBool("fixed")
		currency, _ := cmd.Flags().GetString("currency")
		clientName, _ := cmd.Flags().GetString("client")

		rate, err := decimal.NewFromString(rateFlag)
		if err != nil {
			env.fail(fmt.Errorf("invalid rate %q", rateFlag))
		}
		if currency == "" {
			currency = env.cfg.DefaultCurrency
		}

		var clientID *string
		if clientName != "" {
			c, err := findClient(repository.NewClientRepo(env.db), clientName)
			if err != nil {
				env.fail(err)
			}
			clientID = &c.ID
		}

		p, err := repository.NewProjectRepo(env.db).Create(strings.TrimSpace(args[0]), clientID, rate, !fixed, strings.ToUpper(currency))
		if err != nil {
			env.fail(err)
		}
		fmt.Printf("Created project %s (%s)\n", p.Name, p.ID)
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		env := mustSetup()
		defer env.Close()

		projects, err := repository.NewProjectRepo(env.db).GetAllWithStats()
		if err != nil {
			env.fail(err)
		}
		if len(projects) == 0 {
			fmt.Println("No projects yet.")
			return
		}

		rows := make([][]string, 0, len(projects))
		for _, p := range projects {
			kind := "hourly"
			if !p.HourlyPayment {
				kind = "fixed"
			}
			rows = append(rows, []string{
				p.Name,
				p.ClientName,
				formatMoney(p.Salary, p.Currency) + " " + kind,
				fmt.Sprintf("%d", p.SessionCount),
				formatSeconds(p.ActiveSeconds),
				p.ID,
			})
		}
		printTable(os.Stdout, []string{"NAME", "CLIENT", "RATE", "SESSIONS", "WORKED", "ID"}, rows)
	},
}

var projectRmCmd = &cobra.Command{
	Use:   "rm <name|id>",
	Short: "Delete a project and its sessions",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		env := mustSetup()
		defer env.Close()

		p, err := findProject(repository.NewProjectRepo(env.db), args[0])
		if err != nil {
			env.fail(err)
		}
		n, err := env.tracker.DeleteProject(p.ID)
		if err != nil {
			env.fail(err)
		}
		fmt.Printf("Deleted project %s and %d sessions\n", p.Name, n)
	},
}

func findClient(repo *repository.ClientRepo, ref string) (*models.Client, error) {
	c, err := repo.GetByName(ref)
	if err != nil {
		return nil, err
	}
	if c == nil {
		if c, err = repo.GetByID(ref); err != nil {
			return nil, err
		}
	}
	if c == nil {
		return nil, fmt.Errorf("client %q not found", ref)
	}
	return c, nil
}

func findProject(repo *repository.ProjectRepo, ref string) (*models.Project, error) {
	p, err := repo.GetByName(ref)
	if err != nil {
		return nil, err
	}
	if p == nil {
		if p, err = repo.GetByID(ref); err != nil {
			return nil, err
		}
	}
	if p == nil {
		return nil, fmt.Errorf("project %q not found", ref)
	}
	return p, nil
}

func init() {
	projectAddCmd.Flags().String("rate", "0", "Salary: hourly rate, or the fixed amount with --fixed")
	projectAddCmd.Flags().Bool("fixed", false, "Paid a fixed amount instead of hourly")
	projectAddCmd.Flags().String("currency", "", "Currency code (default from config)")
	projectAddCmd.Flags().StringP("client", "c", "", "Client name or ID")

	clientCmd.AddCommand(clientAddCmd)
	clientCmd.AddCommand(clientListCmd)
	clientCmd.AddCommand(clientRmCmd)

	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectRmCmd)
}
