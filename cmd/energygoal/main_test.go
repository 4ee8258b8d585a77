package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/energygoal/internal/config"
	"github.com/jgoulah/energygoal/internal/database"
)

const readingsCSV = `source,timestamp,actual,goal,warning
Lehua-A,2011-10-03 14:05:09,47,50,45
Mokihana,2011-10-03 14:05:09,n/a,40,35
Ilima,2011-10-03 14:05:09,1200,1000,900
Hale,2011-10-03 14:05:09,50,40,45
`

const readingsJSON = `google.visualization.Query.setResponse({"table":{
 "cols":[{"id":"A","label":"source","type":"string"},{"id":"B","label":"timestamp","type":"datetime"},
         {"id":"C","label":"actual","type":"number"},{"id":"D","label":"goal","type":"number"},
         {"id":"E","label":"warning","type":"number"}],
 "rows":[{"c":[{"v":"Lehua-A"},{"v":"Date(2011,9,4,8,0,0)"},{"v":30},{"v":50},{"v":45}]}]}});`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func useTempWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	oldCfg, oldDB := cfgFile, dbPath
	cfgFile = filepath.Join(dir, "config.yaml")
	dbPath = filepath.Join(dir, "data.db")
	t.Cleanup(func() { cfgFile, dbPath = oldCfg, oldDB })
	return dbPath
}

func TestReadTableFile(t *testing.T) {
	table, err := readTableFile(writeFile(t, "readings.csv", readingsCSV), "")
	require.NoError(t, err)
	assert.Equal(t, 4, table.NumberOfRows())

	table, err = readTableFile(writeFile(t, "readings.txt", readingsJSON), "json")
	require.NoError(t, err)
	assert.Equal(t, 1, table.NumberOfRows())

	_, err = readTableFile(writeFile(t, "readings.xml", "<rows/>"), "")
	assert.ErrorContains(t, err, "unsupported table format")

	_, err = readTableFile(filepath.Join(t.TempDir(), "missing.csv"), "")
	assert.Error(t, err)
}

func TestImportSkipsInvalidRows(t *testing.T) {
	path := useTempWorkspace(t)
	importCmd.SetContext(context.Background())

	csvPath := writeFile(t, "readings.csv", readingsCSV)
	require.NoError(t, runImport(importCmd, []string{csvPath, writeFile(t, "later.json", readingsJSON)}))
	// a second import stores nothing new
	require.NoError(t, runImport(importCmd, []string{csvPath}))

	db, err := database.New(path)
	require.NoError(t, err)
	defer db.Close()

	sources, err := db.ListSources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Hale", "Ilima", "Lehua-A"}, sources)

	history, err := db.ListRecords(context.Background(), "Lehua-A")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 30, history[0].Actual)
	assert.Equal(t, 47, history[1].Actual)
}

func TestNewLogger(t *testing.T) {
	old := logLevel
	t.Cleanup(func() { logLevel = old })

	logLevel = ""
	_, err := newLogger(&config.Config{LogLevel: "debug"})
	assert.NoError(t, err)

	logLevel = "loud"
	_, err = newLogger(&config.Config{})
	assert.ErrorContains(t, err, "invalid log level")
}

func TestInitWritesDefaultConfig(t *testing.T) {
	useTempWorkspace(t)
	old := initForce
	t.Cleanup(func() { initForce = old })

	initForce = false
	require.NoError(t, runInit(initCmd, nil))

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	assert.ErrorContains(t, runInit(initCmd, nil), "already exists")

	initForce = true
	assert.NoError(t, runInit(initCmd, nil))
}

func captureStdout(t *testing.T, fn func() error) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)

	old := os.Stdout
	os.Stdout = w
	runErr := fn()
	os.Stdout = old
	require.NoError(t, w.Close())
	require.NoError(t, runErr)

	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	require.NoError(t, err)
	return buf.String()
}

func TestListUsesWidgetDatePattern(t *testing.T) {
	useTempWorkspace(t)
	listCmd.SetContext(context.Background())
	importCmd.SetContext(context.Background())
	require.NoError(t, runImport(importCmd, []string{writeFile(t, "readings.csv", readingsCSV)}))

	out := captureStdout(t, func() error { return runList(listCmd, nil) })
	assert.Contains(t, out, "MM/dd/yy h:mm:ss a")
	assert.Contains(t, out, "10/03/11 2:05:09 PM")
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "over_goal")
}
