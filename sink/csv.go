package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/lightlink-network/ll-whale-tracker/types"
)

// Header is the first line of every CSV file written by CSV. The column
// names match existing whale_delay.csv files so rows can be appended to them.
var Header = []string{
	"hash", "method", "amount_usdt", "from", "to", "tag",
	"block", "status", "delay_s", "gasUsed", "effectiveGasPrice_gwei",
}

// CSV appends one line per row to a file. The header is written only when the
// file is created empty.
type CSV struct {
	mu   sync.Mutex
	file *os.File
	w    *csv.Writer
}

func NewCSV(path string) (*CSV, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat csv file: %w", err)
	}

	c := &CSV{file: file, w: csv.NewWriter(file)}
	if info.Size() == 0 {
		if err := c.write(Header); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write csv header: %w", err)
		}
	}
	return c, nil
}

func (c *CSV) WriteRow(_ context.Context, row types.Row) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.write(Record(row)); err != nil {
		return fmt.Errorf("failed to append csv row: %w", err)
	}
	return nil
}

func (c *CSV) write(record []string) error {
	if err := c.w.Write(record); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *CSV) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.file.Close()
}

// Record lays row out in Header order. Absent fields are empty cells.
func Record(row types.Row) []string {
	return []string{
		row.Hash,
		string(row.Method),
		row.Amount,
		row.From,
		row.To,
		row.Tag,
		row.BlockString(),
		string(row.Status),
		row.DelayString(),
		row.GasUsed,
		row.EffectiveFeeRate,
	}
}
