package manifest

import (
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"encoding/json"
)

// Tree is the in-memory namespace of a volume:
// a directory hierarchy with manifest leaves at the bottom.
type Tree struct {
	Root *Directory
}

var (
	// ErrNotFound is returned when a path does not exist in the tree.
	ErrNotFound = errors.New("no such file or directory")
	// ErrNotADirectory is returned when a path component resolves to a leaf.
	ErrNotADirectory = errors.New("not a directory")
	// ErrIsADirectory is returned when a leaf operation hits a directory.
	ErrIsADirectory = errors.New("is a directory")
	// ErrExists is returned when a node would overwrite an existing one.
	ErrExists = errors.New("file exists")
	// ErrNotEmpty is returned when removing a non-empty directory without recursion.
	ErrNotEmpty = errors.New("directory not empty")
)

func NewTree() Tree {
	return Tree{Root: &Directory{Children: map[string]any{}}}
}

// splitPath validates a path and splits it into canonical segments.
// The empty path, ".", and "/" address the root (nil segments).
func splitPath(p string) ([]string, error) {
	p = strings.Trim(p, "/")
	if p == "" || p == "." {
		return nil, nil
	}
	segments := strings.Split(p, "/")
	for _, segment := range segments {
		if segment == "" {
			return nil, errors.New("path must not contain empty segments")
		}
		if segment == "." || segment == ".." {
			return nil, errors.New("path must not contain '.' or '..' segments")
		}
	}
	return segments, nil
}

func (t Tree) Insert(leafPath string, leaf Leaf) error {
	segments, err := splitPath(leafPath)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return errors.New("path must be a non-empty path to the artifact, relative to the volume root")
	}

	current := t.Root
	for _, segment := range segments[:len(segments)-1] {
		child, ok := current.Children[segment]
		if !ok {
			child = &Directory{Children: map[string]any{}}
			current.Children[segment] = child
		}
		dir, ok := child.(*Directory)
		if !ok {
			return fmt.Errorf("%s: %w", segment, ErrNotADirectory)
		}
		current = dir
	}

	leafName := segments[len(segments)-1]
	if _, ok := current.Children[leafName]; ok {
		return fmt.Errorf("%s: %w", leafPath, ErrExists)
	}
	current.Children[leafName] = &leaf
	return nil
}

// Lookup resolves a path to a node (*Directory or *Leaf).
func (t Tree) Lookup(p string) (any, error) {
	segments, err := splitPath(p)
	if err != nil {
		return nil, err
	}
	var current any = t.Root
	for _, segment := range segments {
		dir, ok := current.(*Directory)
		if !ok {
			return nil, fmt.Errorf("%s: %w", p, ErrNotADirectory)
		}
		current, ok = dir.Children[segment]
		if !ok {
			return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
		}
	}
	return current, nil
}

// Mkdir creates a directory at the given path. With parents set,
// missing ancestors are created and an existing directory is not an error
// (mkdir -p semantics).
func (t Tree) Mkdir(p string, parents bool) error {
	segments, err := splitPath(p)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		if parents {
			return nil
		}
		return fmt.Errorf("%s: %w", p, ErrExists)
	}
	current := t.Root
	for i, segment := range segments {
		last := i == len(segments)-1
		child, ok := current.Children[segment]
		if !ok {
			if !last && !parents {
				return fmt.Errorf("%s: %w", path.Join(segments[:i+1]...), ErrNotFound)
			}
			newDir := &Directory{Children: map[string]any{}}
			current.Children[segment] = newDir
			current = newDir
			continue
		}
		dir, isDir := child.(*Directory)
		if !isDir {
			return fmt.Errorf("%s: %w", path.Join(segments[:i+1]...), ErrNotADirectory)
		}
		if last && !parents {
			return fmt.Errorf("%s: %w", p, ErrExists)
		}
		current = dir
	}
	return nil
}

// Remove deletes the node at the given path. Directories require the
// recursive flag unless they are empty.
func (t Tree) Remove(p string, recursive bool) error {
	segments, err := splitPath(p)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return errors.New("refusing to remove the volume root")
	}
	parent := t.Root
	for _, segment := range segments[:len(segments)-1] {
		child, ok := parent.Children[segment]
		if !ok {
			return fmt.Errorf("%s: %w", p, ErrNotFound)
		}
		dir, isDir := child.(*Directory)
		if !isDir {
			return fmt.Errorf("%s: %w", p, ErrNotADirectory)
		}
		parent = dir
	}
	name := segments[len(segments)-1]
	child, ok := parent.Children[name]
	if !ok {
		return fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	if dir, isDir := child.(*Directory); isDir && !recursive && len(dir.Children) > 0 {
		return fmt.Errorf("%s: %w", p, ErrNotEmpty)
	}
	delete(parent.Children, name)
	return nil
}

// DirEntry is a single row of a directory listing.
type DirEntry struct {
	Name string
	// Node is the child node (*Directory or *Leaf).
	Node any
}

// List returns the children of the directory at the given path,
// sorted by name.
func (t Tree) List(p string) ([]DirEntry, error) {
	node, err := t.Lookup(p)
	if err != nil {
		return nil, err
	}
	dir, ok := node.(*Directory)
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, ErrNotADirectory)
	}
	entries := make([]DirEntry, 0, len(dir.Children))
	for name, child := range dir.Children {
		entries = append(entries, DirEntry{Name: name, Node: child})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Walk visits every leaf under the given path in depth-first order,
// calling fn with the leaf's path relative to p.
func (t Tree) Walk(p string, fn func(leafPath string, leaf *Leaf) error) error {
	node, err := t.Lookup(p)
	if err != nil {
		return err
	}
	return walkNode("", node, fn)
}

func walkNode(prefix string, node any, fn func(string, *Leaf) error) error {
	switch n := node.(type) {
	case *Leaf:
		return fn(prefix, n)
	case *Directory:
		names := make([]string, 0, len(n.Children))
		for name := range n.Children {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			childPath := name
			if prefix != "" {
				childPath = prefix + "/" + name
			}
			if err := walkNode(childPath, n.Children[name], fn); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unexpected node type %T", node)
}

// TreeFromManifest decodes, validates, and expands a JSON manifest
// into a tree.
func TreeFromManifest(reader io.Reader) (Tree, error) {
	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	var manifest Manifest
	if err := decoder.Decode(&manifest); err != nil {
		return Tree{}, DecodeError{wrapped: err}
	}
	if err := manifest.validate(); err != nil {
		return Tree{}, err
	}

	tree := NewTree()
	for path, entry := range manifest {
		leaf, err := LeafFromEntry(entry)
		if err != nil {
			return Tree{}, fmt.Errorf("building leaf node %s for tree from manifest: %w", path, err)
		}
		if err := tree.Insert(path, leaf); err != nil {
			return Tree{}, fmt.Errorf("inserting %s from manifest into tree: %w", path, err)
		}
	}

	return tree, nil
}
