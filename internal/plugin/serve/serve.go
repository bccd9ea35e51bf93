// Package serve implements the plugin side of the RPC wire: it reads
// JSON-RPC request lines from standard input, dispatches each one to a
// wrapped driver and writes exactly one response line back. Plugin
// executables wire their driver through Serve and log to standard error,
// leaving standard output for frames only.
package serve

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mosaic-db/mosaic/internal/driver"
	"github.com/mosaic-db/mosaic/internal/errs"
	"github.com/mosaic-db/mosaic/internal/logger"
	"github.com/mosaic-db/mosaic/internal/plugin"
)

// params is the superset of named parameters any method can carry. Fields
// irrelevant to a given method stay at their zero value. The columns field
// is raw because its element type depends on the method.
type params struct {
	Params      driver.ConnectionParams `json:"params"`
	Schema      string                  `json:"schema"`
	Table       string                  `json:"table"`
	TableName   string                  `json:"table_name"`
	ViewName    string                  `json:"view_name"`
	Definition  string                  `json:"definition"`
	RoutineName string                  `json:"routine_name"`
	RoutineType string                  `json:"routine_type"`
	Query       string                  `json:"query"`
	Limit       int                     `json:"limit"`
	Page        int                     `json:"page"`
	Data        map[string]any          `json:"data"`
	PKCol       string                  `json:"pk_col"`
	PKVal       any                     `json:"pk_val"`
	ColName     string                  `json:"col_name"`
	NewVal      any                     `json:"new_val"`
	MaxBlobSize uint64                  `json:"max_blob_size"`
	Columns     json.RawMessage         `json:"columns"`
	Column      json.RawMessage         `json:"column"`
	OldColumn   driver.ColumnDefinition `json:"old_column"`
	NewColumn   driver.ColumnDefinition `json:"new_column"`
	IndexName   string                  `json:"index_name"`
	IsUnique    bool                    `json:"is_unique"`
	FKName      string                  `json:"fk_name"`
	RefTable    string                  `json:"ref_table"`
	RefColumn   string                  `json:"ref_column"`
	OnDelete    string                  `json:"on_delete"`
	OnUpdate    string                  `json:"on_update"`
}

// Server dispatches request frames to one wrapped driver.
type Server struct {
	drv driver.Driver
	log *logger.Logger
}

// New returns a Server for d. A nil log disables logging.
func New(d driver.Driver, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{drv: d, log: log}
}

// Serve processes request lines from in until end-of-stream, writing one
// response line per request to out. Malformed lines with a recoverable id
// get an error response; lines with no id are logged and skipped.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	w := bufio.NewWriter(out)

	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}

		var req plugin.Request
		if err := json.Unmarshal(line, &req); err != nil {
			if id, ok := recoverID(line); ok {
				s.respondError(w, id, plugin.CodeInvalidRequest, "malformed request")
				continue
			}
			s.log.Errorf("malformed request skipped: %v", err)
			continue
		}
		if req.Method == "" {
			s.respondError(w, req.ID, plugin.CodeInvalidRequest, "method not specified")
			continue
		}

		result, err := s.dispatch(ctx, req.Method, req.Params)
		if err != nil {
			s.respondError(w, req.ID, errorCode(err), err.Error())
			continue
		}
		s.respond(w, req.ID, result)
	}
	return sc.Err()
}

// recoverID pulls the id out of a line that failed to decode as a Request,
// so the host's pending call still gets an answer. Lines that are not JSON
// objects, or carry no usable id, yield false.
func recoverID(line []byte) (uint64, bool) {
	var envelope struct {
		ID uint64 `json:"id"`
	}
	if err := json.Unmarshal(line, &envelope); err != nil || envelope.ID == 0 {
		return 0, false
	}
	return envelope.ID, true
}

func (s *Server) respond(w *bufio.Writer, id uint64, result any) {
	raw, err := json.Marshal(result)
	if err != nil {
		s.respondError(w, id, plugin.CodeOperationFailed, fmt.Sprintf("cannot encode result: %v", err))
		return
	}
	s.write(w, plugin.Response{JSONRPC: "2.0", Result: raw, ID: id})
}

func (s *Server) respondError(w *bufio.Writer, id uint64, code int, msg string) {
	s.write(w, plugin.Response{JSONRPC: "2.0", Error: &plugin.RPCError{Code: code, Message: msg}, ID: id})
}

func (s *Server) write(w *bufio.Writer, resp plugin.Response) {
	frame, err := json.Marshal(resp)
	if err != nil {
		s.log.Errorf("cannot encode response: %v", err)
		return
	}
	frame = append(frame, '\n')
	if _, err := w.Write(frame); err != nil {
		s.log.Errorf("cannot write response: %v", err)
		return
	}
	w.Flush()
}

// errorCode maps a categorized driver error onto the wire code space.
func errorCode(err error) int {
	switch {
	case errs.IsUnsupported(err):
		return plugin.CodeUnsupported
	case errs.IsInvalidInput(err):
		return plugin.CodeInvalidParams
	case errs.IsConnection(err):
		return plugin.CodeConnectionFailed
	default:
		return plugin.CodeOperationFailed
	}
}

// dispatch maps one method name to the wrapped driver operation.
func (s *Server) dispatch(ctx context.Context, method string, raw json.RawMessage) (any, error) {
	var p params
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "cannot decode params", err)
		}
	}

	switch method {
	case "test_connection":
		if err := s.drv.TestConnection(ctx, p.Params); err != nil {
			return nil, err
		}
		return true, nil
	case "get_databases":
		return s.drv.Databases(ctx, p.Params)
	case "get_schemas":
		return s.drv.Schemas(ctx, p.Params)
	case "get_tables":
		return s.drv.Tables(ctx, p.Params, p.Schema)
	case "get_columns":
		return s.drv.Columns(ctx, p.Params, p.Table, p.Schema)
	case "get_foreign_keys":
		return s.drv.ForeignKeys(ctx, p.Params, p.Table, p.Schema)
	case "get_indexes":
		return s.drv.Indexes(ctx, p.Params, p.Table, p.Schema)

	case "get_views":
		return s.drv.Views(ctx, p.Params, p.Schema)
	case "get_view_definition":
		return s.drv.ViewDefinition(ctx, p.Params, p.ViewName, p.Schema)
	case "get_view_columns":
		return s.drv.ViewColumns(ctx, p.Params, p.ViewName, p.Schema)
	case "create_view":
		return nil, s.drv.CreateView(ctx, p.Params, p.ViewName, p.Definition, p.Schema)
	case "alter_view":
		return nil, s.drv.AlterView(ctx, p.Params, p.ViewName, p.Definition, p.Schema)
	case "drop_view":
		return nil, s.drv.DropView(ctx, p.Params, p.ViewName, p.Schema)

	case "get_routines":
		return s.drv.Routines(ctx, p.Params, p.Schema)
	case "get_routine_parameters":
		return s.drv.RoutineParameters(ctx, p.Params, p.RoutineName, p.Schema)
	case "get_routine_definition":
		return s.drv.RoutineDefinition(ctx, p.Params, p.RoutineName, p.RoutineType, p.Schema)

	case "execute_query":
		return s.drv.ExecuteQuery(ctx, p.Params, p.Query, p.Limit, p.Page, p.Schema)

	case "insert_record":
		return s.drv.InsertRecord(ctx, p.Params, p.Table, p.Data, p.Schema, p.MaxBlobSize)
	case "update_record":
		return s.drv.UpdateRecord(ctx, p.Params, p.Table, p.PKCol, p.PKVal, p.ColName, p.NewVal, p.Schema, p.MaxBlobSize)
	case "delete_record":
		return s.drv.DeleteRecord(ctx, p.Params, p.Table, p.PKCol, p.PKVal, p.Schema)

	case "get_create_table_sql":
		var columns []driver.ColumnDefinition
		if err := decodeInto(p.Columns, &columns); err != nil {
			return nil, err
		}
		return s.drv.CreateTableSQL(ctx, p.TableName, columns, p.Schema)
	case "get_add_column_sql":
		// "column" is a column descriptor here but a plain column name in
		// get_create_foreign_key_sql, so both decode lazily.
		var column driver.ColumnDefinition
		if err := decodeInto(p.Column, &column); err != nil {
			return nil, err
		}
		return s.drv.AddColumnSQL(ctx, p.Table, column, p.Schema)
	case "get_alter_column_sql":
		return s.drv.AlterColumnSQL(ctx, p.Table, p.OldColumn, p.NewColumn, p.Schema)
	case "get_create_index_sql":
		var columns []string
		if err := decodeInto(p.Columns, &columns); err != nil {
			return nil, err
		}
		return s.drv.CreateIndexSQL(ctx, p.Table, p.IndexName, columns, p.IsUnique, p.Schema)
	case "get_create_foreign_key_sql":
		var column string
		if err := decodeInto(p.Column, &column); err != nil {
			return nil, err
		}
		return s.drv.CreateForeignKeySQL(ctx, p.Table, p.FKName, column, p.RefTable, p.RefColumn, p.OnDelete, p.OnUpdate, p.Schema)
	case "drop_index":
		return nil, s.drv.DropIndex(ctx, p.Params, p.Table, p.IndexName, p.Schema)
	case "drop_foreign_key":
		return nil, s.drv.DropForeignKey(ctx, p.Params, p.Table, p.FKName, p.Schema)

	case "get_schema_snapshot":
		return s.drv.SchemaSnapshot(ctx, p.Params, p.Schema)
	case "get_all_columns_batch":
		return s.drv.AllColumns(ctx, p.Params, p.Schema)
	case "get_all_foreign_keys_batch":
		return s.drv.AllForeignKeys(ctx, p.Params, p.Schema)

	default:
		return nil, errs.Unsupported(fmt.Sprintf("method %q", method))
	}
}

func decodeInto(raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "cannot decode columns", err)
	}
	return nil
}
