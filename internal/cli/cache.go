package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pyseek/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the interpreter probe cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cacheDirCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached interpreter probes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := filepath.Join(c.settings.CacheDir, probeCacheDir)
			fc, err := cache.NewFileCache(dir)
			if err != nil {
				return err
			}
			count, err := fc.Clear()
			if err != nil {
				return err
			}

			if url := c.settings.CacheURL; url != "" {
				if rc, ok := c.newCache(cmd.Context()).(*cache.RedisCache); ok {
					n, err := rc.Clear(cmd.Context())
					_ = rc.Close()
					if err != nil {
						return err
					}
					count += n
				}
			}

			c.printSuccess("Cleared %d cached entries", count)
			c.printDetail("Directory: %s", dir)
			return nil
		},
	}
}

// cacheDirCommand creates the "cache dir" subcommand.
func (c *CLI) cacheDirCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dir",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.printResult("%s", c.settings.CacheDir)
			return nil
		},
	}
}
