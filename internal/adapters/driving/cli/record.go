package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Capture records",
	Long: `Capture records into the local queue. Capturing always succeeds while
the device is offline; queued records are synchronised later.`,
}

var recordAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Queue a new record",
	Long: `Queue a new record. The payload is a JSON document given inline with
--payload, read from --file, or read from stdin when --file is "-".

With --locate the device position is acquired first and stored in the
payload under "location". The payload must then be a JSON object.`,
	Example: `  herbtrace record add --kind herb-collection --payload '{"species":"Withania somnifera"}'
  herbtrace record add --kind farmer-registration --file farmer.json --locate`,
	RunE: runRecordAdd,
}

var recordDraftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Manage in-progress drafts",
	Long:  `A draft holds the in-progress payload for one record kind until it is submitted or discarded.`,
}

var recordDraftSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save or replace the draft for a kind",
	RunE:  runDraftSave,
}

var recordDraftShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the draft for a kind",
	RunE:  runDraftShow,
}

var recordDraftDiscardCmd = &cobra.Command{
	Use:   "discard",
	Short: "Delete the draft for a kind",
	RunE:  runDraftDiscard,
}

var recordDraftSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Queue the draft as a record and delete it",
	RunE:  runDraftSubmit,
}

func init() {
	recordAddCmd.Flags().String("kind", "", "record kind, e.g. herb-collection")
	recordAddCmd.Flags().String("payload", "", "JSON payload")
	recordAddCmd.Flags().StringP("file", "f", "", `read the payload from a file ("-" for stdin)`)
	recordAddCmd.Flags().Bool("locate", false, "acquire the device position and add it to the payload")
	_ = recordAddCmd.MarkFlagRequired("kind")
	recordAddCmd.MarkFlagsMutuallyExclusive("payload", "file")

	for _, c := range []*cobra.Command{recordDraftSaveCmd, recordDraftShowCmd, recordDraftDiscardCmd, recordDraftSubmitCmd} {
		c.Flags().String("kind", "", "record kind")
		_ = c.MarkFlagRequired("kind")
	}
	recordDraftSaveCmd.Flags().String("payload", "", "JSON payload")
	recordDraftSaveCmd.Flags().StringP("file", "f", "", `read the payload from a file ("-" for stdin)`)
	recordDraftSaveCmd.MarkFlagsMutuallyExclusive("payload", "file")

	recordDraftCmd.AddCommand(recordDraftSaveCmd, recordDraftShowCmd, recordDraftDiscardCmd, recordDraftSubmitCmd)
	recordCmd.AddCommand(recordAddCmd, recordDraftCmd)
	rootCmd.AddCommand(recordCmd)
}

func runRecordAdd(cmd *cobra.Command, _ []string) error {
	if captureService == nil {
		return errors.New("capture service not configured")
	}

	kind, _ := cmd.Flags().GetString("kind")
	payload, err := readPayload(cmd)
	if err != nil {
		return err
	}

	if locate, _ := cmd.Flags().GetBool("locate"); locate {
		payload, err = attachLocation(cmd, payload)
		if err != nil {
			return err
		}
	}

	id, err := captureService.SubmitRecord(cmd.Context(), domain.RecordKind(kind), payload)
	if err != nil {
		return fmt.Errorf("failed to queue record: %w", err)
	}

	cmd.Printf("Queued %s record %s\n", kind, id)
	return nil
}

// attachLocation acquires a fix and stores it under "location".
func attachLocation(cmd *cobra.Command, payload []byte) ([]byte, error) {
	if geolocation == nil {
		return nil, errors.New("geolocation not configured")
	}

	var doc map[string]any
	if err := json.Unmarshal(payload, &doc); err != nil || doc == nil {
		return nil, fmt.Errorf("%w: --locate needs a JSON object payload", domain.ErrInvalidInput)
	}

	fix, err := geolocation.Acquire(cmd.Context(), domain.GeoOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to acquire location: %w", err)
	}
	cmd.Printf("Location %.6f,%.6f (±%.0fm)\n", fix.Latitude, fix.Longitude, fix.Accuracy)

	doc["location"] = fix
	return json.Marshal(doc)
}

// readPayload returns the --payload value or the contents of --file.
func readPayload(cmd *cobra.Command) ([]byte, error) {
	if inline, _ := cmd.Flags().GetString("payload"); inline != "" {
		return []byte(inline), nil
	}

	file, _ := cmd.Flags().GetString("file")
	switch file {
	case "":
		return nil, fmt.Errorf("%w: one of --payload or --file is required", domain.ErrInvalidInput)
	case "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	default:
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading payload: %w", err)
		}
		return data, nil
	}
}

func runDraftSave(cmd *cobra.Command, _ []string) error {
	if draftService == nil {
		return errors.New("draft service not configured")
	}
	kind, _ := cmd.Flags().GetString("kind")
	payload, err := readPayload(cmd)
	if err != nil {
		return err
	}

	if err := draftService.SaveDraft(cmd.Context(), domain.RecordKind(kind), payload); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	cmd.Printf("Draft saved for %s\n", kind)
	return nil
}

func runDraftShow(cmd *cobra.Command, _ []string) error {
	if draftService == nil {
		return errors.New("draft service not configured")
	}
	kind, _ := cmd.Flags().GetString("kind")

	draft, err := draftService.LoadDraft(cmd.Context(), domain.RecordKind(kind))
	if errors.Is(err, domain.ErrNotFound) {
		cmd.Printf("No draft for %s\n", kind)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load draft: %w", err)
	}

	cmd.Printf("Draft for %s (saved %s)\n", draft.Kind, draft.SavedAt.Local().Format("2006-01-02 15:04:05"))
	cmd.Println(string(draft.Payload))
	return nil
}

func runDraftDiscard(cmd *cobra.Command, _ []string) error {
	if draftService == nil {
		return errors.New("draft service not configured")
	}
	kind, _ := cmd.Flags().GetString("kind")

	if err := draftService.DiscardDraft(cmd.Context(), domain.RecordKind(kind)); err != nil {
		return fmt.Errorf("failed to discard draft: %w", err)
	}
	cmd.Printf("Draft discarded for %s\n", kind)
	return nil
}

func runDraftSubmit(cmd *cobra.Command, _ []string) error {
	if draftService == nil {
		return errors.New("draft service not configured")
	}
	kind, _ := cmd.Flags().GetString("kind")

	id, err := draftService.FinalizeDraft(cmd.Context(), domain.RecordKind(kind))
	if err != nil {
		return fmt.Errorf("failed to submit draft: %w", err)
	}
	cmd.Printf("Queued %s record %s\n", kind, id)
	return nil
}
