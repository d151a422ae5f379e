package router

// RewritePath replaces the first len(SourcePath) bytes of path with
// DestPath. Callers must only pass paths the target matched.
func (t *Target) RewritePath(path string) string {
	if len(path) < len(t.SourcePath) {
		return t.DestPath
	}
	return t.DestPath + path[len(t.SourcePath):]
}
