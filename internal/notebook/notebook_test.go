package notebook_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/nbrun/nbrun/internal/notebook"
	"github.com/nbrun/nbrun/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNotebook(t *testing.T) {
	path := testutil.SetUpFromGoldenFile(t)

	n, err := notebook.Parse(path)
	require.NoError(t, err)

	require.Len(t, n.Cells, 4)
	assert.Equal(t, notebook.TypeMarkdown, n.Cells[0].Type)
	assert.Equal(t, notebook.TypeCode, n.Cells[1].Type)
	assert.Equal(t, notebook.TypeCode, n.Cells[2].Type)
	assert.Equal(t, notebook.TypeRaw, n.Cells[3].Type)

	assert.Equal(t, []string{"import os", "", "print(os.getcwd())"}, n.Cells[1].Source)
	assert.Equal(t, []string{"%time foo()"}, n.Cells[2].Source)

	assert.False(t, n.Changed())
}

func TestParseNotebook_InvalidJSON(t *testing.T) {
	path := testutil.SetUpFromFileContent(t, "invalid_notebook.ipynb", "foo")

	_, err := notebook.Parse(path)
	require.Error(t, err)
	assert.Equal(t, fmt.Sprintf("Error parsing %s", path), err.Error())

	var parseErr *notebook.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, path, parseErr.Path)
}

func TestParseBytes_SourceAsString(t *testing.T) {
	content := `{
 "cells": [
  {
   "cell_type": "code",
   "metadata": {},
   "outputs": [],
   "source": "x = 1\ny = 2"
  }
 ],
 "metadata": {},
 "nbformat": 4,
 "nbformat_minor": 5
}`
	n, err := notebook.ParseBytes([]byte(content))
	require.NoError(t, err)
	require.Len(t, n.Cells, 1)
	assert.Equal(t, []string{"x = 1", "y = 2"}, n.Cells[0].Source)
}

func TestSetSource_SameContentIsNotAChange(t *testing.T) {
	path := testutil.SetUpFromGoldenFileNamed(t, "TestParseNotebook.ipynb")
	n, err := notebook.Parse(path)
	require.NoError(t, err)

	n.Cells[1].SetSource([]string{"import os", "", "print(os.getcwd())"})
	assert.False(t, n.Changed())

	n.Cells[1].SetSource([]string{"import sys"})
	assert.True(t, n.Changed())
}

func TestMarshalBytes_RoundTrip(t *testing.T) {
	path := testutil.SetUpFromGoldenFileNamed(t, "TestParseNotebook.ipynb")
	n, err := notebook.Parse(path)
	require.NoError(t, err)

	n.Cells[2].SetSource([]string{"%time bar()"})

	content, err := n.MarshalBytes()
	require.NoError(t, err)

	reparsed, err := notebook.ParseBytes(content)
	require.NoError(t, err)
	require.Len(t, reparsed.Cells, 4)

	// The touched cell carries the new source.
	assert.Equal(t, []string{"%time bar()"}, reparsed.Cells[2].Source)
	// Untouched cells are identical.
	assert.Equal(t, n.Cells[0].Source, reparsed.Cells[0].Source)
	assert.Equal(t, n.Cells[1].Source, reparsed.Cells[1].Source)
	assert.Equal(t, n.Cells[3].Source, reparsed.Cells[3].Source)
}

func TestMarshalBytes_PreservesMetadata(t *testing.T) {
	path := testutil.SetUpFromGoldenFileNamed(t, "TestParseNotebook.ipynb")
	n, err := notebook.Parse(path)
	require.NoError(t, err)

	n.Cells[1].SetSource([]string{"import sys"})

	content, err := n.MarshalBytes()
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(content, &doc))

	// Notebook-level metadata survives untouched.
	var metadata map[string]any
	require.NoError(t, json.Unmarshal(doc["metadata"], &metadata))
	kernelspec := metadata["kernelspec"].(map[string]any)
	assert.Equal(t, "Python 3", kernelspec["display_name"])
	assert.Equal(t, "4", string(doc["nbformat"]))

	// Cell-level metadata of the rewritten cell survives too.
	var cells []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(doc["cells"], &cells))
	assert.Equal(t, "1", string(cells[1]["execution_count"]))
	var tags map[string]any
	require.NoError(t, json.Unmarshal(cells[1]["metadata"], &tags))
	assert.Contains(t, tags, "tags")
}

func TestMarshalBytes_KeepsTrailingNewlineConvention(t *testing.T) {
	content := `{
 "cells": [
  {
   "cell_type": "code",
   "metadata": {},
   "outputs": [],
   "source": [
    "x = 1\n",
    "y = 2"
   ]
  }
 ],
 "metadata": {},
 "nbformat": 4,
 "nbformat_minor": 5
}`
	n, err := notebook.ParseBytes([]byte(content))
	require.NoError(t, err)

	n.Cells[0].SetSource([]string{"x = 1", "y = 3"})
	out, err := n.MarshalBytes()
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &doc))
	var cells []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(doc["cells"], &cells))

	var source []string
	require.NoError(t, json.Unmarshal(cells[0]["source"], &source))
	assert.Equal(t, []string{"x = 1\n", "y = 3"}, source)
}
