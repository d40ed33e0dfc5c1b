package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"shelfkeep/internal/app"
	"shelfkeep/internal/config"
	"shelfkeep/internal/library"
	"shelfkeep/internal/model"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
func newApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.ReadFromFile(app.DefaultConfigPath())
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "shelfkeep",
	Short: "Local-first resource library",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := app.DefaultConfigPath()
		cfg := config.NewConfig(app.DefaultBaseDir())

		if err := config.Init(path, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", path)
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := app.DefaultConfigPath()
		cfg, err := config.ReadFromFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Storage Type: %s\n", cfg.Storage.Type)
		fmt.Printf("Storage Root: %s\n", cfg.Storage.Root)
		fmt.Printf("Index Path:   %s\n", cfg.Index.Path)
		return nil
	},
}

// item command
var itemCmd = &cobra.Command{
	Use:   "item",
	Short: "Manage library items",
}

var itemAddCmd = &cobra.Command{
	Use:   "add TITLE",
	Short: "Add an item to the library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		itemType, _ := cmd.Flags().GetString("type")
		folder, _ := cmd.Flags().GetString("folder")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		file, _ := cmd.Flags().GetString("file")
		url, _ := cmd.Flags().GetString("url")

		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		input := library.AddItemInput{
			Title:    args[0],
			Type:     model.ItemType(itemType),
			TagIDs:   tags,
			FolderID: folder,
		}
		switch {
		case file != "":
			input.Storage = model.StorageDescriptor{
				Mode:       model.ModeReference,
				LocalPath:  file,
				SourcePath: file,
			}
		case url != "":
			input.Type = model.TypeLink
			input.Storage = model.StorageDescriptor{
				Mode:       model.ModeReference,
				SourcePath: url,
			}
		}

		item, err := a.Store().AddItem(ctx, input)
		if err != nil {
			return fmt.Errorf("adding item: %w", err)
		}

		fmt.Printf("Added %s (%s)\n", item.Title, item.ID)
		return nil
	},
}

var itemListCmd = &cobra.Command{
	Use:   "list",
	Short: "List library items, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		items := a.Store().Items()
		if len(items) == 0 {
			fmt.Println("Library is empty.")
			return nil
		}

		for _, item := range items {
			star := " "
			if item.Starred {
				star = "*"
			}
			fmt.Printf("%s %-36s  %-12s  %s\n", star, item.ID, item.Type, item.Title)
		}
		return nil
	},
}

var itemRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Remove an item from the library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Store().DeleteItem(ctx, args[0]); err != nil {
			return fmt.Errorf("removing item: %w", err)
		}
		fmt.Printf("Removed %s\n", args[0])
		return nil
	},
}

var itemMoveCmd = &cobra.Command{
	Use:   "move ID FOLDER_ID",
	Short: "Move an item to a folder, relocating its file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		folderID := args[1]
		item, err := a.Store().UpdateItem(ctx, args[0], library.ItemPatch{FolderID: &folderID})
		if err != nil {
			return fmt.Errorf("moving item: %w", err)
		}
		fmt.Printf("Moved %s to folder %s\n", item.Title, folderID)
		return nil
	},
}

// tag command
var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage tags",
}

var tagAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parent, _ := cmd.Flags().GetString("parent")
		color, _ := cmd.Flags().GetString("color")

		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		tag, err := a.Store().AddTag(ctx, library.TagInput{Name: args[0], ParentID: parent, Color: color})
		if err != nil {
			return fmt.Errorf("creating tag: %w", err)
		}
		fmt.Printf("Created tag %s (%s)\n", tag.Name, tag.ID)
		return nil
	},
}

var tagListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tags",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		tags := a.Store().Tags()
		if len(tags) == 0 {
			fmt.Println("No tags.")
			return nil
		}
		for _, t := range tags {
			fmt.Printf("%-36s  %-20s  %d item(s)\n", t.ID, t.Name, t.Count)
		}
		return nil
	},
}

var tagRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Remove a tag and its descendants",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Store().DeleteTag(ctx, args[0]); err != nil {
			return fmt.Errorf("removing tag: %w", err)
		}
		fmt.Printf("Removed %s\n", args[0])
		return nil
	},
}

var tagRecountCmd = &cobra.Command{
	Use:   "recount",
	Short: "Recompute tag item counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Store().RecomputeTagCounts(); err != nil {
			return err
		}
		fmt.Println("Tag counts recomputed.")
		return nil
	},
}

// folder command
var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Manage folders",
}

var folderAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parent, _ := cmd.Flags().GetString("parent")

		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		folder, err := a.Store().AddFolder(ctx, library.FolderInput{Name: args[0], ParentID: parent})
		if err != nil {
			return fmt.Errorf("creating folder: %w", err)
		}
		fmt.Printf("Created folder %s (%s)\n", folder.Name, folder.ID)
		return nil
	},
}

var folderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List folders",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		folders := a.Store().Folders()
		if len(folders) == 0 {
			fmt.Println("No folders.")
			return nil
		}
		for _, f := range folders {
			fmt.Printf("%-36s  %s\n", f.ID, f.Name)
		}
		return nil
	},
}

var folderRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Remove a folder and its descendants",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Store().DeleteFolder(ctx, args[0]); err != nil {
			return fmt.Errorf("removing folder: %w", err)
		}
		fmt.Printf("Removed %s\n", args[0])
		return nil
	},
}

// search command
var searchCmd = &cobra.Command{
	Use:   "search QUERY...",
	Short: "Search the library",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		items, err := a.SearchLexical(ctx, strings.Join(args, " "), limit)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No matches.")
			return nil
		}
		for _, item := range items {
			fmt.Printf("%-36s  %-12s  %s\n", item.ID, item.Type, item.Title)
		}
		return nil
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage library snapshots",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Take a snapshot of the library",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		name, err := a.CreateBackup(ctx)
		if err != nil {
			return fmt.Errorf("creating backup: %w", err)
		}
		fmt.Printf("Created backup %s\n", name)
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		infos, err := a.Store().Backups().List(ctx)
		if err != nil {
			return fmt.Errorf("listing backups: %w", err)
		}
		if len(infos) == 0 {
			fmt.Println("No backups.")
			return nil
		}
		for _, info := range infos {
			fmt.Printf("%-32s  %10d bytes  %s\n", info.Name, info.Size, info.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore NAME",
	Short: "Restore the library from a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		var passphrase string
		if enc := a.Encryptor(); enc != nil && enc.IsConfigured() {
			passphrase, err = readPassphrase("Passphrase: ")
			if err != nil {
				return err
			}
		}

		if err := a.RestoreBackup(ctx, args[0], passphrase); err != nil {
			return fmt.Errorf("restoring backup: %w", err)
		}
		fmt.Printf("Restored %s\n", args[0])
		return nil
	},
}

var backupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old snapshots beyond the retention count",
	RunE: func(cmd *cobra.Command, args []string) error {
		keep, _ := cmd.Flags().GetInt("keep")

		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		deleted, err := a.Store().Backups().CleanupOld(ctx, keep)
		if err != nil {
			return fmt.Errorf("pruning backups: %w", err)
		}
		fmt.Printf("Deleted %d snapshot(s)\n", deleted)
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage backup encryption keys",
}

var keysSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Generate a backup encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		enc := a.Encryptor()
		if enc == nil {
			return fmt.Errorf("encryption is disabled in the config")
		}
		if enc.IsConfigured() {
			return fmt.Errorf("encryption keys already exist")
		}

		passphrase, err := readPassphrase("New passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		if err := enc.Setup(passphrase); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}
		fmt.Println("Encryption keys generated.")
		return nil
	},
}

// readPassphrase reads a passphrase from the terminal without echo.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	data, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(data), nil
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// item subcommands
	itemCmd.AddCommand(itemAddCmd)
	itemAddCmd.Flags().StringP("type", "t", "document", "Item type (pdf, document, image, link, ...)")
	itemAddCmd.Flags().StringP("folder", "f", "", "Folder ID")
	itemAddCmd.Flags().StringSlice("tag", nil, "Tag ID (repeatable)")
	itemAddCmd.Flags().String("file", "", "Path to the item's file")
	itemAddCmd.Flags().String("url", "", "Link target URL")
	itemCmd.AddCommand(itemListCmd)
	itemCmd.AddCommand(itemRmCmd)
	itemCmd.AddCommand(itemMoveCmd)

	// tag subcommands
	tagCmd.AddCommand(tagAddCmd)
	tagAddCmd.Flags().String("parent", "", "Parent tag ID")
	tagAddCmd.Flags().String("color", "", "Display color")
	tagCmd.AddCommand(tagListCmd)
	tagCmd.AddCommand(tagRmCmd)
	tagCmd.AddCommand(tagRecountCmd)

	// folder subcommands
	folderCmd.AddCommand(folderAddCmd)
	folderAddCmd.Flags().String("parent", "", "Parent folder ID")
	folderCmd.AddCommand(folderListCmd)
	folderCmd.AddCommand(folderRmCmd)

	// backup subcommands
	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	backupCmd.AddCommand(backupPruneCmd)
	backupPruneCmd.Flags().IntP("keep", "k", library.DefaultBackupKeep, "Snapshots to retain")

	// keys subcommands
	keysCmd.AddCommand(keysSetupCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(itemCmd)
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(folderCmd)
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntP("limit", "n", 20, "Maximum results")
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(keysCmd)
}
