package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/PoluyanbIch/GoQuiz/internal/app"
	"github.com/PoluyanbIch/GoQuiz/internal/config"
	"github.com/PoluyanbIch/GoQuiz/internal/console"
	"github.com/PoluyanbIch/GoQuiz/internal/logger"
	"github.com/PoluyanbIch/GoQuiz/internal/service"
)

var (
	configDir  string
	dbPath     string
	logLevel   string
	difficulty string
	categoryID int
	mixed      bool
	answer     int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", os.Getenv("QUIZ_CONFIG_DIR"), "directory containing config.yaml")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the question database, overrides database.path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides log.level")

	questionsCmd.Flags().StringVar(&difficulty, "difficulty", string(service.DifficultyEasy), "Easy, Medium or Hard")
	questionsCmd.Flags().IntVar(&categoryID, "category", 0, "category id, 0 for all categories")
	addCategoryCmd.Flags().BoolVar(&mixed, "mixed", false, "mark the category as the all-categories entry")
	addQuestionCmd.Flags().StringVar(&difficulty, "difficulty", string(service.DifficultyEasy), "Easy, Medium or Hard")
	addQuestionCmd.Flags().IntVar(&categoryID, "category", 0, "category id")
	addQuestionCmd.Flags().IntVar(&answer, "answer", 0, "number of the correct option, 1 to 3")
	_ = addQuestionCmd.MarkFlagRequired("category")
	_ = addQuestionCmd.MarkFlagRequired("answer")

	rootCmd.AddCommand(playCmd, categoriesCmd, questionsCmd, highscoreCmd, seedCmd, addCategoryCmd, addQuestionCmd, importCmd)
}

var rootCmd = &cobra.Command{
	Use:          "quiz",
	Short:        "single-player trivia quiz",
	SilenceUsage: true,
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "play a quiz in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := open(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		g := &console.Game{
			Launcher:   a.Launcher,
			Results:    a.Results,
			RunnerOpts: a.RunnerOptions(),
			ExitWindow: a.Config.Quiz.ExitWindow,
			Log:        a.Log.Named("console"),
		}
		_, err = g.Play(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		return err
	},
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "list question categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := open(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		categories, err := a.Store.ListCategories(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tMIXED")
		for _, c := range categories {
			fmt.Fprintf(w, "%d\t%s\t%t\n", c.ID, c.Name, c.Mixed)
		}
		return w.Flush()
	},
}

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "list questions of a difficulty, optionally in one category",
	RunE: func(cmd *cobra.Command, args []string) error {
		d := service.Difficulty(difficulty)
		if !d.Valid() {
			return fmt.Errorf("unknown difficulty %q", difficulty)
		}

		a, err := open(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		var questions []service.Question
		if categoryID == 0 {
			questions, err = a.Store.ListQuestions(cmd.Context(), d)
		} else {
			questions, err = a.Store.ListQuestionsByCategory(cmd.Context(), categoryID, d)
		}
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCATEGORY\tQUESTION\tANSWER")
		for _, q := range questions {
			fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", q.ID, q.CategoryID, q.Text, q.OptionText(q.Answer))
		}
		return w.Flush()
	},
}

var highscoreCmd = &cobra.Command{
	Use:   "highscore",
	Short: "print the highscore",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := open(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		h, err := a.Results.Highscore(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), h)
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:     "seed",
	Aliases: []string{"init"},
	Short:   "create and seed the question database",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := open(cmd)
		if err != nil {
			return err
		}
		a.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "question store ready at %s\n", a.Config.Database.Path)
		return nil
	},
}

var addCategoryCmd = &cobra.Command{
	Use:   "add-category NAME",
	Short: "add a question category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := open(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		c, err := a.Store.AddCategory(cmd.Context(), service.Category{Name: args[0], Mixed: mixed})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added category %d: %s\n", c.ID, c.Name)
		return nil
	},
}

var addQuestionCmd = &cobra.Command{
	Use:   "add-question TEXT OPTION1 OPTION2 OPTION3",
	Short: "add a question",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := open(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		q, err := a.Store.AddQuestion(cmd.Context(), service.Question{
			Text:       args[0],
			Option1:    args[1],
			Option2:    args[2],
			Option3:    args[3],
			Answer:     service.Option(answer),
			Difficulty: service.Difficulty(difficulty),
			CategoryID: categoryID,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added question %d\n", q.ID)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "import questions from a pipe-separated file",
	Long: "Each line holds: text | option1 | option2 | option3 | answer | difficulty | category id.\n" +
		"Blank lines and lines starting with # are skipped. The import is all or nothing.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		questions, err := service.ParseQuestionsFile(args[0])
		if err != nil {
			return err
		}

		a, err := open(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		added, err := a.Store.AddQuestions(cmd.Context(), questions)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d questions\n", len(added))
		return nil
	},
}

// open loads the configuration and builds the application for one command.
// Logs go to stderr so listings stay clean on stdout.
func open(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	lg, err := logger.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	a, err := app.New(cmd.Context(), cfg, lg)
	if err != nil {
		lg.Error("initializing quiz", zap.Error(err))
		return nil, err
	}
	return a, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		log.Fatal(err)
	}
}
