package core

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Filetree struct {
	Root Node
}

func BuildFiletree(paths []ParsedPath) (*Filetree, error) {
	var rootNodes []Node

	for _, parsedPath := range paths {
		if parsedPath.Kind == PathDir {
			dirNode, err := buildDirTree(parsedPath.FullPath)
			if err != nil {
				return nil, err
			}
			rootNodes = append(rootNodes, dirNode)
		} else {
			fileNode := &File{
				path: parsedPath.FullPath,
				name: filepath.Base(parsedPath.FullPath),
			}
			rootNodes = append(rootNodes, fileNode)
		}
	}

	if len(rootNodes) == 0 {
		return nil, fmt.Errorf("no valid paths provided")
	}

	// several top-level paths share one synthetic root
	var root Node
	if len(rootNodes) == 1 {
		root = rootNodes[0]
	} else {
		root = createVirtualRoot(rootNodes, time.Now())
	}

	return &Filetree{Root: root}, nil
}

// FlattenTree returns every node in depth-first order, root first.
func (ft *Filetree) FlattenTree() []Node {
	var nodes []Node
	var walk func(Node)
	walk = func(n Node) {
		nodes = append(nodes, n)
		if d, ok := n.(*Dir); ok {
			for _, child := range d.children {
				walk(child)
			}
		}
	}
	walk(ft.Root)
	return nodes
}

func buildDirTree(dirPath string) (*Dir, error) {
	dir := &Dir{
		path:     dirPath,
		name:     filepath.Base(dirPath),
		children: []Node{},
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		childPath := filepath.Join(dirPath, entry.Name())

		switch {
		case entry.IsDir():
			childDir, err := buildDirTree(childPath)
			if err != nil {
				return nil, err
			}
			childDir.parent = dir
			dir.children = append(dir.children, childDir)
		case entry.Type().IsRegular():
			childFile := &File{
				path: childPath,
				name: entry.Name(),
				dir:  dir,
			}
			dir.children = append(dir.children, childFile)
		}
		// symlinks, sockets and devices are skipped
	}

	return dir, nil
}

// bundleRootLayout names the directory that wraps several uploaded paths;
// it also becomes the archive name, e.g. studyhub-notes-20240309-140507.zip.
const bundleRootLayout = "20060102-150405"

func createVirtualRoot(children []Node, now time.Time) *Dir {
	name := fmt.Sprintf("studyhub-notes-%s", now.Format(bundleRootLayout))
	virtualRoot := &Dir{
		path:     name,
		name:     name,
		children: children,
	}

	for _, child := range children {
		if dir, ok := child.(*Dir); ok {
			dir.parent = virtualRoot
		} else if file, ok := child.(*File); ok {
			file.dir = virtualRoot
		}
	}

	return virtualRoot
}
