package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/vault-md/versioned/internal/database"
	"github.com/vault-md/versioned/internal/logging"
	"github.com/vault-md/versioned/internal/readingmode"
	"github.com/vault-md/versioned/internal/services"
	"github.com/vault-md/versioned/internal/versioned"
)

// Server wraps the MCP server with the versioned tools
type Server struct {
	server      *mcp.Server
	svc         *services.VersionedService
	defaultMode string
	log         *logrus.Entry
}

// NewServer creates a new MCP server instance reading through svc.
// defaultMode applies to calls that pick no stage; empty means
// readingmode.DefaultMode.
func NewServer(svc *services.VersionedService, defaultMode, version string) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "versioned",
		Version: version,
	}, nil)

	s := &Server{
		server:      mcpServer,
		svc:         svc,
		defaultMode: defaultMode,
		log:         logging.For("mcp"),
	}

	s.registerTools()

	return s
}

// Run starts the MCP server with stdio transport
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "versioned_list",
		Description: "List the records of a versioned table as seen from a stage, an archive date, a status filter, or every version",
	}, s.handleList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "versioned_get",
		Description: "Retrieve one record of a versioned table as seen from a stage or archive date, or a specific version of it",
	}, s.handleGet)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "versioned_status",
		Description: "Report whether a record is draft only, published, modified on draft, on live only, or archived",
	}, s.handleStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "versioned_write",
		Description: "Save fields to the draft stage of a record, creating it when no id is given",
	}, s.handleWrite)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "versioned_publish",
		Description: "Publish the draft of a record to the live stage",
	}, s.handlePublish)
}

type ListInput struct {
	Table        string   `json:"table" jsonschema:"Name of the versioned table, e.g. Page"`
	Status       []string `json:"status,omitempty" jsonschema:"Only records with any of these statuses: draft, modified, published, archived"`
	AllVersions  *bool    `json:"allVersions,omitempty" jsonschema:"Return every version of every record"`
	Stage        *string  `json:"stage,omitempty" jsonschema:"Stage to read: Draft or Live"`
	ArchiveDate  *string  `json:"archiveDate,omitempty" jsonschema:"Read the archive as of this date (YYYY-MM-DD)"`
	ArchiveStage *string  `json:"archiveStage,omitempty" jsonschema:"Stage the archive is resolved against: Draft (default) or Live"`
}

type ListOutput struct {
	Mode    string         `json:"mode"`
	Records []RecordOutput `json:"records"`
}

type RecordOutput struct {
	ID         int64             `json:"id"`
	Version    int64             `json:"version"`
	Fields     map[string]string `json:"fields"`
	LastEdited string            `json:"lastEdited"`
}

type GetInput struct {
	Table        string  `json:"table" jsonschema:"Name of the versioned table, e.g. Page"`
	ID           int64   `json:"id" jsonschema:"Record id"`
	Version      *int64  `json:"version,omitempty" jsonschema:"Specific version to retrieve, ignoring the stage"`
	Stage        *string `json:"stage,omitempty" jsonschema:"Stage to read: Draft or Live"`
	ArchiveDate  *string `json:"archiveDate,omitempty" jsonschema:"Read the archive as of this date (YYYY-MM-DD)"`
	ArchiveStage *string `json:"archiveStage,omitempty" jsonschema:"Stage the archive is resolved against: Draft (default) or Live"`
}

type StatusInput struct {
	Table string `json:"table" jsonschema:"Name of the versioned table, e.g. Page"`
	ID    int64  `json:"id" jsonschema:"Record id"`
}

type StatusOutput struct {
	ID           int64  `json:"id"`
	Status       string `json:"status"`
	Label        string `json:"label"`
	DraftVersion *int64 `json:"draftVersion,omitempty"`
	LiveVersion  *int64 `json:"liveVersion,omitempty"`
}

type WriteInput struct {
	Table  string            `json:"table" jsonschema:"Name of the versioned table, e.g. Page"`
	ID     *int64            `json:"id,omitempty" jsonschema:"Record id; omit to create a record"`
	Fields map[string]string `json:"fields" jsonschema:"Field values to store on the draft"`
}

type PublishInput struct {
	Table string `json:"table" jsonschema:"Name of the versioned table, e.g. Page"`
	ID    int64  `json:"id" jsonschema:"Record id"`
}

func toRecordOutput(r database.Record) RecordOutput {
	return RecordOutput{
		ID:         r.ID,
		Version:    r.Version,
		Fields:     r.Fields,
		LastEdited: r.LastEdited.UTC().Format(database.TimestampLayout),
	}
}

// withReadingMode returns ctx carrying the reading mode picked by the
// optional stage and archive inputs of a call.
func (s *Server) withReadingMode(ctx context.Context, stage, archiveDate, archiveStage *string) (context.Context, error) {
	state, err := readingmode.Resolve(
		s.defaultMode,
		readingmode.Stage(deref(stage)),
		deref(archiveDate),
		readingmode.Stage(deref(archiveStage)),
	)
	if err != nil {
		return nil, err
	}
	return readingmode.NewContext(ctx, state), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Tool handlers

func (s *Server) handleList(ctx context.Context, req *mcp.CallToolRequest, input ListInput) (*mcp.CallToolResult, ListOutput, error) {
	ctx, err := s.withReadingMode(ctx, input.Stage, input.ArchiveDate, input.ArchiveStage)
	if err != nil {
		return nil, ListOutput{}, err
	}

	args := services.ArgsFromContext(ctx)
	switch {
	case len(input.Status) > 0:
		args = versioned.QueryArgs{Mode: versioned.ModeStatus}
		for _, st := range input.Status {
			args.Status = append(args.Status, versioned.ParseStatusFilters(st)...)
		}
	case input.AllVersions != nil && *input.AllVersions:
		args = versioned.QueryArgs{Mode: versioned.ModeAllVersions}
	}

	records, err := s.svc.List(ctx, input.Table, args)
	if err != nil {
		return nil, ListOutput{}, fmt.Errorf("failed to list %s: %w", input.Table, err)
	}

	out := ListOutput{Mode: string(args.Mode), Records: make([]RecordOutput, 0, len(records))}
	if m, ok := args.ReadingMode(); ok {
		out.Mode = m.String()
	}
	for _, r := range records {
		out.Records = append(out.Records, toRecordOutput(r))
	}
	return nil, out, nil
}

func (s *Server) handleGet(ctx context.Context, req *mcp.CallToolRequest, input GetInput) (*mcp.CallToolResult, RecordOutput, error) {
	ctx, err := s.withReadingMode(ctx, input.Stage, input.ArchiveDate, input.ArchiveStage)
	if err != nil {
		return nil, RecordOutput{}, err
	}

	var record *database.Record
	if input.Version != nil {
		record, err = s.svc.Find(ctx, input.Table, versioned.QueryArgs{Mode: versioned.ModeVersion, Version: input.Version}, input.ID)
	} else {
		record, err = s.svc.Get(ctx, input.Table, input.ID)
	}
	if err != nil {
		return nil, RecordOutput{}, fmt.Errorf("failed to get %s #%d: %w", input.Table, input.ID, err)
	}
	return nil, toRecordOutput(*record), nil
}

func (s *Server) handleStatus(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (*mcp.CallToolResult, StatusOutput, error) {
	st, err := s.svc.Status(ctx, input.Table, input.ID)
	if err != nil {
		return nil, StatusOutput{}, fmt.Errorf("failed to get status of %s #%d: %w", input.Table, input.ID, err)
	}
	return nil, StatusOutput{
		ID:           st.ID,
		Status:       st.Status.Key(),
		Label:        st.Status.Label(),
		DraftVersion: st.DraftVersion,
		LiveVersion:  st.LiveVersion,
	}, nil
}

func (s *Server) handleWrite(ctx context.Context, req *mcp.CallToolRequest, input WriteInput) (*mcp.CallToolResult, RecordOutput, error) {
	var id int64
	if input.ID != nil {
		id = *input.ID
	}
	record, err := s.svc.WriteDraft(ctx, input.Table, id, input.Fields)
	if err != nil {
		return nil, RecordOutput{}, fmt.Errorf("failed to write %s: %w", input.Table, err)
	}
	s.log.WithFields(logrus.Fields{"table": input.Table, "id": record.ID}).Debug("draft written")
	return nil, toRecordOutput(*record), nil
}

func (s *Server) handlePublish(ctx context.Context, req *mcp.CallToolRequest, input PublishInput) (*mcp.CallToolResult, RecordOutput, error) {
	record, err := s.svc.Publish(ctx, input.Table, input.ID)
	if err != nil {
		return nil, RecordOutput{}, fmt.Errorf("failed to publish %s #%d: %w", input.Table, input.ID, err)
	}
	return nil, toRecordOutput(*record), nil
}
