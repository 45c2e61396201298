package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	formguide "github.com/goliatone/go-formguide"
	"github.com/goliatone/go-formguide/pkg/backend"
	"github.com/goliatone/go-formguide/pkg/field"
)

func newProjectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects available for auto-fill",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cli := contextFrom(cmd)
			logger := cli.logger()
			defer logger.Sync()

			client, err := backend.NewClient(cli.backendURL,
				backend.WithAuthToken(cli.authToken),
				backend.WithLogger(logger))
			if err != nil {
				return err
			}

			projects, err := client.Projects(cmd.Context())
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				fmt.Println("No projects found.")
				return nil
			}
			for _, p := range projects {
				fmt.Printf("%s  %s  (created %s)\n", p.ID, p.Name, p.CreatedAt)
			}
			return nil
		},
	}
}

func newAutofillCommand() *cobra.Command {
	var projectID, output string

	cmd := &cobra.Command{
		Use:   "autofill <page.html>",
		Short: "Detect fields and fill them from a project's documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := contextFrom(cmd)
			logger := cli.logger()
			defer logger.Sync()

			guide, err := formguide.New(cli.backendURL,
				formguide.WithLogger(logger),
				formguide.WithAuthToken(cli.authToken))
			if err != nil {
				return err
			}
			defer guide.Close()

			ctx := cmd.Context()
			doc, err := guide.LoadPageFile(args[0])
			if err != nil {
				return err
			}
			if err := guide.Start(ctx); err != nil {
				return err
			}

			sess := guide.Session()
			count, err := sess.AnalyzeFields(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Detected %d fields.\n", count)

			projects, err := sess.Projects(ctx)
			if err != nil {
				return err
			}
			project, err := chooseProject(projects, projectID)
			if err != nil {
				return err
			}
			if err := sess.SelectProject(ctx, project); err != nil {
				return err
			}

			filled, err := sess.AutoFill(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Filled %d fields from project %q.\n", filled, project.Name)

			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				defer f.Close()
				if err := doc.Render(f); err != nil {
					return err
				}
				fmt.Printf("Filled page written to %s\n", output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "project id (prompts interactively when empty)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the filled page to this file")
	return cmd
}

// chooseProject resolves a project by id, or prompts when none was given.
func chooseProject(projects []field.Project, projectID string) (field.Project, error) {
	if len(projects) == 0 {
		return field.Project{}, fmt.Errorf("no projects available; upload documents first")
	}

	if projectID != "" {
		for _, p := range projects {
			if p.ID == projectID {
				return p, nil
			}
		}
		return field.Project{}, fmt.Errorf("project %q not found", projectID)
	}

	names := make([]string, len(projects))
	for i, p := range projects {
		names[i] = fmt.Sprintf("%s (%s)", p.Name, p.CreatedAt)
	}

	var choice int
	prompt := &survey.Select{
		Message: "Select a project:",
		Options: names,
	}
	if err := survey.AskOne(prompt, &choice); err != nil {
		return field.Project{}, err
	}
	return projects[choice], nil
}

func newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <page.html>",
		Short: "Re-run detection whenever the page file changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := contextFrom(cmd)
			logger := cli.logger()
			defer logger.Sync()

			guide, err := formguide.New(cli.backendURL,
				formguide.WithLogger(logger),
				formguide.WithAuthToken(cli.authToken))
			if err != nil {
				return err
			}
			defer guide.Close()

			ctx := cmd.Context()
			if _, err := guide.LoadPageFile(args[0]); err != nil {
				return err
			}
			if err := guide.Start(ctx); err != nil {
				return err
			}

			fmt.Printf("Watching %s; press Ctrl-C to stop.\n", args[0])
			err = guide.WatchPage(ctx, args[0])
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
