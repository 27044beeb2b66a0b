// Package file stores herbtrace settings in config.toml under the XDG config
// directory. Dotted keys map onto nested TOML tables, and Watch reports
// edits made by other processes so a running daemon can reload.
package file
