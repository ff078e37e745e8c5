package storage

import "time"

const historyKey = "entries"

type CommandHistoryRecord struct {
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Command   string    `json:"command"`
	Param     string    `json:"param,omitempty"`
	Datetime  time.Time `json:"datetime"`
}

func readHistory(data map[string]any) ([]CommandHistoryRecord, error) {
	raw, ok := data[historyKey]
	if !ok || raw == nil {
		return []CommandHistoryRecord{}, nil
	}
	var out []CommandHistoryRecord
	if err := decode(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AppendCommandToHistory records an executed command, keeping only the most
// recent entries. The table is left for the next autosave.
func (s *Storage) AppendCommandToHistory(rec CommandHistoryRecord) error {
	return s.update(HistoryTable, func(data map[string]any) error {
		list, err := readHistory(data)
		if err != nil {
			return err
		}
		list = append(list, rec)
		if len(list) > commandHistoryLimit {
			list = list[len(list)-commandHistoryLimit:]
		}
		enc, err := encode(list)
		if err != nil {
			return err
		}
		data[historyKey] = enc
		return nil
	})
}

// FetchCommandHistory returns the recorded commands, oldest first.
func (s *Storage) FetchCommandHistory() ([]CommandHistoryRecord, error) {
	var out []CommandHistoryRecord
	err := s.view(HistoryTable, func(data map[string]any) error {
		var err error
		out, err = readHistory(data)
		return err
	})
	return out, err
}
