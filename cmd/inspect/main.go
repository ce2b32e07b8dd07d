// Command inspect dumps the contents of a board database as tables.
// It opens the store read-only so it can run next to a live server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"

	"msgboard/domain"
)

func main() {
	dbPath := flag.String("db", "", "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan (msg: or user:)")
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("missing -db path")
	}

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	switch {
	case strings.HasPrefix(*prefix, "msg:"):
		err = dumpMessages(db, *prefix)
	case strings.HasPrefix(*prefix, "user"):
		err = dumpUsers(db, *prefix)
	default:
		err = fmt.Errorf("unknown prefix %q", *prefix)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func newTable(headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func dumpMessages(db *badger.DB, prefix string) error {
	table := newTable([]string{"Key", "ID", "User", "Created", "Text"})

	err := scan(db, prefix, func(key string, value []byte) {
		var msg domain.Message
		if err := json.Unmarshal(value, &msg); err != nil {
			fmt.Printf("Error unmarshaling key %s: %v\n", key, err)
			return
		}
		text := msg.Text
		if len(text) > 60 {
			text = text[:60] + "..."
		}
		table.Append([]string{
			key,
			fmt.Sprintf("%d", msg.ID),
			fmt.Sprintf("%s (%d)", msg.Username, msg.UserID),
			msg.CreatedAt.Format(time.RFC3339),
			text,
		})
	})
	if err != nil {
		return err
	}

	table.Render()
	return nil
}

func dumpUsers(db *badger.DB, prefix string) error {
	table := newTable([]string{"Key", "ID", "Username", "Created"})

	// username: keys are a secondary index holding only the id
	err := scan(db, prefix, func(key string, value []byte) {
		if strings.HasPrefix(key, "username:") {
			table.Append([]string{key, string(value), "", ""})
			return
		}
		var user struct {
			ID        int64     `json:"id"`
			Username  string    `json:"username"`
			CreatedAt time.Time `json:"created_at"`
		}
		if err := json.Unmarshal(value, &user); err != nil {
			fmt.Printf("Error unmarshaling key %s: %v\n", key, err)
			return
		}
		table.Append([]string{
			key,
			fmt.Sprintf("%d", user.ID),
			user.Username,
			user.CreatedAt.Format(time.RFC3339),
		})
	})
	if err != nil {
		return err
	}

	table.Render()
	return nil
}

func scan(db *badger.DB, prefix string, visit func(key string, value []byte)) error {
	return db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				visit(string(item.Key()), v)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	db, err := badger.Open(opts)
	if err != nil {
		// A crashed server can leave the value log needing a truncate,
		// which read-only mode refuses to do. Open once in write mode to
		// repair, then reopen read-only.
		if strings.Contains(err.Error(), "Log truncate required") {
			repairOpts := badger.DefaultOptions(path).
				WithLogger(nil).WithBypassLockGuard(true)

			db, err = badger.Open(repairOpts)
			if err != nil {
				return nil, fmt.Errorf("repair failed: %w", err)
			}

			db.Close()
			return badger.Open(opts)
		}
		return nil, err
	}
	return db, nil
}
