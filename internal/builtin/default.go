package builtin

import "sync"

// defaultEntries lists every shipped handler.
func defaultEntries() []Entry {
	return []Entry{
		entry("git-status", "git status", "branch plus staged, changed and untracked files", gitStatus),
		entry("git-diff", "git diff", "file names, hunk headers and changed lines", gitDiff),
		entry("git-show", "git show", "commit header and compressed diff", gitShow),
		entry("git-log", "git log", "one line per commit: hash, author, subject", gitLog),
		entry("git-push", "git push", "pushed refs or rejection reasons", gitPush),
		entry("git-pull", "git pull", "fast-forward summary or conflicts", gitPull),
		entry("git-fetch", "git fetch", "count of updated refs", gitFetch),
		entry("git-commit", "git commit", "commit hash, subject and stat", gitCommit),
		entry("git-add", "git add", "ok confirmation", gitAdd),
		entry("git-branch", "git branch", "current branch first, list capped", gitBranch),
		entry("git-stash", "git stash", "stash confirmations and list", gitStash),

		entry("cargo-test", "cargo test", "failures and test result lines", cargoTest),
		entry("cargo-build", "cargo build", "errors with locations", cargoBuild),
		entry("cargo-check", "cargo check", "errors with locations", cargoBuild),
		entry("cargo-clippy", "cargo clippy", "diagnostics with locations", cargoClippy),

		entry("go-test", "go test", "failing tests, panics and package summary", goTest),
		entry("go-build", "go build", "compiler errors", goBuild),
		entry("go-vet", "go vet", "vet findings", goVet),
		entry("golangci-lint", "golangci-lint run", "lint issues", golangciLint),

		entry("npm-test", "npm test", "test runner summary", npmTest),
		entry("npm-run-test", "npm run test", "test runner summary", npmTest),
		entry("npm-install", "npm install", "added packages and vulnerabilities", npmInstall),
		entry("npm-ci", "npm ci", "added packages and vulnerabilities", npmInstall),
		entry("jest", "jest", "failures and summary", jestTests),
		entry("vitest", "vitest", "failures and summary", vitestTests),
		entry("tsc", "tsc", "type errors grouped by file", tsc),
		entry("eslint", "eslint", "errors by file, warnings counted per rule", eslint),

		entry("pytest", "pytest", "failures and final summary", pytest),
		entry("python-pytest", "python -m pytest", "failures and final summary", pytest),
		entry("ruff", "ruff check", "lint findings", ruff),
		entry("mypy", "mypy", "type errors and summary", mypy),
		entry("pip-install", "pip install", "installed packages and errors", pipInstall),

		entry("ls", "ls", "names with sizes, directories first", ls),
		entry("find", "find", "paths grouped by directory", find),
		entry("grep", "grep", "matches grouped by file", grep),
		entry("rg", "rg", "matches grouped by file", grep),
		entry("tree", "tree", "capped tree", tree),

		entry("env", "env", "variables with secrets masked", env),
		entry("printenv", "printenv", "variables with secrets masked", env),
		entry("curl", "curl", "body without progress meter", curl),
		entry("wget", "wget", "status and saved file", wget),

		entry("docker-ps", "docker ps", "name, image, status, ports", dockerPs),
		entry("docker-images", "docker images", "repo:tag and size", dockerImages),
		entry("docker-logs", "docker logs", "deduplicated tail", dockerLogs),
		entry("docker-build", "docker build", "step count or failing step", dockerBuild),
	}
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the registry of shipped handlers.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg = MustRegistry(defaultEntries()...)
	})
	return defaultReg
}
