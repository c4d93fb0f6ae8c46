package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"shuttle/internal/logging"
	"shuttle/internal/services"
)

// fieldCommands maps projection fields to rTorrent accessor commands.
var fieldCommands = map[Field]string{
	FieldName:        "d.name",
	FieldPath:        "d.base_path",
	FieldDirectory:   "d.directory",
	FieldSize:        "d.size_bytes",
	FieldMultiFile:   "d.is_multi_file",
	FieldLabel:       "d.custom1",
	FieldComplete:    "d.complete",
	FieldCompletedAt: "d.timestamp.finished",
}

// Rtorrent talks to an rTorrent instance over XML-RPC via SCGI.
type Rtorrent struct {
	transport scgiTransport
	logger    *slog.Logger
}

// NewRtorrent builds a client from a controller URL: scgi://host:port for TCP
// or an absolute path for a unix socket.
func NewRtorrent(rawURL string, connectTimeout time.Duration, logger *slog.Logger) (*Rtorrent, error) {
	rawURL = strings.TrimSpace(rawURL)
	client := &Rtorrent{logger: logging.NewComponentLogger(logger, "controller")}
	switch {
	case strings.HasPrefix(rawURL, "scgi://"):
		client.transport = scgiTransport{network: "tcp", addr: strings.TrimPrefix(rawURL, "scgi://"), timeout: connectTimeout}
	case strings.HasPrefix(rawURL, "/"):
		client.transport = scgiTransport{network: "unix", addr: rawURL, timeout: connectTimeout}
	default:
		return nil, services.Wrap(services.ErrConfiguration, "controller", "new", fmt.Sprintf("unsupported url %q", rawURL), nil)
	}
	return client, nil
}

func (c *Rtorrent) call(ctx context.Context, method string, params ...string) (xmlValue, error) {
	body, err := c.transport.roundTrip(ctx, marshalCall(method, params))
	if err != nil {
		return xmlValue{}, services.Wrap(services.ErrController, "controller", method, "", err)
	}
	value, err := parseResponse(body)
	if err != nil {
		var fault *Fault
		if errors.As(err, &fault) && isNotFoundFault(fault) {
			return xmlValue{}, services.Wrap(services.ErrNotFound, "controller", method, fault.Message, nil)
		}
		return xmlValue{}, services.Wrap(services.ErrController, "controller", method, "", err)
	}
	return value, nil
}

func isNotFoundFault(fault *Fault) bool {
	return strings.Contains(strings.ToLower(fault.Message), "info-hash")
}

// Item fetches a single item snapshot with the requested fields populated.
func (c *Rtorrent) Item(ctx context.Context, id ID, fields ...Field) (*Item, error) {
	item := Item{ID: id}
	for _, field := range fields {
		command, ok := fieldCommands[field]
		if !ok {
			return nil, services.Wrap(services.ErrController, "controller", "item", fmt.Sprintf("no accessor for field %s", field), nil)
		}
		value, err := c.call(ctx, command, string(id))
		if err != nil {
			return nil, err
		}
		if err := assignField(&item, field, value); err != nil {
			return nil, services.Wrap(services.ErrController, "controller", command, "", err)
		}
	}
	return &item, nil
}

// Items enumerates all items via d.multicall2 with one accessor per field.
func (c *Rtorrent) Items(ctx context.Context, fields ...Field) ([]Item, error) {
	params := []string{"", "main", "d.hash="}
	for _, field := range fields {
		command, ok := fieldCommands[field]
		if !ok {
			return nil, services.Wrap(services.ErrController, "controller", "items", fmt.Sprintf("no accessor for field %s", field), nil)
		}
		params = append(params, command+"=")
	}

	result, err := c.call(ctx, "d.multicall2", params...)
	if err != nil {
		return nil, err
	}

	rows := result.values()
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		cells := row.values()
		if len(cells) != len(fields)+1 {
			c.logger.Warn("skipping malformed multicall row",
				logging.Int("cells", len(cells)),
				logging.Int("expected", len(fields)+1))
			continue
		}
		id, err := ParseID(cells[0].text())
		if err != nil {
			c.logger.Warn("skipping item with invalid hash", logging.Error(err))
			continue
		}
		item := Item{ID: id}
		bad := false
		for i, field := range fields {
			if err := assignField(&item, field, cells[i+1]); err != nil {
				c.logger.Warn("skipping item with malformed field",
					logging.String(logging.FieldItemHash, string(id)),
					logging.String("field", field.String()),
					logging.Error(err))
				bad = true
				break
			}
		}
		if bad {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// IsActive reports the current started state of the item.
func (c *Rtorrent) IsActive(ctx context.Context, id ID) (bool, error) {
	value, err := c.call(ctx, "d.is_active", string(id))
	if err != nil {
		return false, err
	}
	return value.asBool()
}

// Stop issues a best-effort stop command.
func (c *Rtorrent) Stop(ctx context.Context, id ID) error {
	_, err := c.call(ctx, "d.stop", string(id))
	return err
}

// Start issues a best-effort start command.
func (c *Rtorrent) Start(ctx context.Context, id ID) error {
	_, err := c.call(ctx, "d.start", string(id))
	return err
}

// SetDirectory repoints the controller's stored data directory for the item.
func (c *Rtorrent) SetDirectory(ctx context.Context, id ID, dir string) error {
	_, err := c.call(ctx, "d.directory.set", string(id), dir)
	return err
}

// Version reports the controller's client version; used by health checks as a
// connectivity probe.
func (c *Rtorrent) Version(ctx context.Context) (string, error) {
	value, err := c.call(ctx, "system.client_version")
	if err != nil {
		return "", err
	}
	return value.text(), nil
}

func assignField(item *Item, field Field, value xmlValue) error {
	switch field {
	case FieldName:
		item.Name = value.text()
	case FieldPath:
		item.Path = value.text()
	case FieldDirectory:
		item.Directory = value.text()
	case FieldSize:
		size, err := value.asInt64()
		if err != nil {
			return err
		}
		item.SizeBytes = size
	case FieldMultiFile:
		multi, err := value.asBool()
		if err != nil {
			return err
		}
		item.IsMultiFile = multi
	case FieldLabel:
		item.Label = value.text()
	case FieldComplete:
		complete, err := value.asBool()
		if err != nil {
			return err
		}
		item.Complete = complete
	case FieldCompletedAt:
		ts, err := value.asInt64()
		if err != nil {
			return err
		}
		item.CompletedAt = ts
	default:
		return fmt.Errorf("unsupported field %d", field)
	}
	return nil
}
