package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"inkwell/internal/doctree"
	"inkwell/internal/domain"
	"inkwell/internal/domain/models"
	"inkwell/internal/editor"
)

// library is a post store that can also find posts to open.
type library interface {
	editor.PostStore
	Get(ctx context.Context, id string) (*models.Post, error)
	List(ctx context.Context) ([]models.Post, error)
	Search(ctx context.Context, query string) (*models.PostSearchResult, error)
}

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, args string) error
}

// repl reads one command per line and applies it to the session.
type repl struct {
	session  *editor.Session
	posts    library
	out      io.Writer
	commands map[string]command
	order    []string
	quit     bool
}

func newREPL(session *editor.Session, posts library, out io.Writer) *repl {
	r := &repl{session: session, posts: posts, out: out, commands: map[string]command{}}

	r.register("help", "help", "list commands", r.cmdHelp)
	r.register("list", "list", "list your posts", r.cmdList)
	r.register("search", "search <text>", "find posts by title or text", r.cmdSearch)
	r.register("new", "new [title]", "create a draft and open it", r.cmdNew)
	r.register("open", "open <id>", "open a post by id", r.cmdOpen)
	r.register("title", "title <text>", "change the title", r.cmdTitle)
	r.register("append", "append <text>", "add a paragraph at the end", r.cmdAppend)
	r.register("heading", "heading <1-3> <text>", "add a heading at the end", r.cmdHeading)
	r.register("replace", "replace <text>", "replace the whole body", r.cmdReplace)
	r.register("select", "select <leaf> <from> <to>", "select characters in one block", r.cmdSelect)
	r.register("caret", "caret <leaf> <offset>", "collapse the selection to a caret", r.cmdCaret)
	r.register("show", "show", "print the body with block numbers", r.cmdShow)
	r.register("export", "export", "print the body as markdown", r.cmdExport)
	r.register("gen", "gen <summary|grammar>", "ask for a summary or grammar fix", r.cmdGenerate)
	r.register("accept", "accept", "apply the pending result", r.cmdAccept)
	r.register("discard", "discard", "drop the pending result", r.cmdDiscard)
	r.register("dismiss", "dismiss", "clear a generation error", r.cmdDismiss)
	r.register("save", "save", "save now", r.cmdSave)
	r.register("publish", "publish", "save and publish", r.cmdPublish)
	r.register("status", "status", "show save and generation status", r.cmdStatus)
	r.register("quit", "quit", "save unsaved edits and leave", r.cmdQuit)
	return r
}

func (r *repl) register(name, usage, help string, run func(context.Context, string) error) {
	r.commands[name] = command{usage: usage, help: help, run: run}
	r.order = append(r.order, name)
}

// Run processes commands until input ends, quit, or ctx is cancelled.
func (r *repl) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64<<10), 1<<20)

	fmt.Fprintln(r.out, "inkwell editor. Type 'help' for commands.")
	for !r.quit {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil
		}
		r.exec(ctx, scanner.Text())
	}
	return scanner.Err()
}

func (r *repl) exec(ctx context.Context, line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	name, args, _ := strings.Cut(line, " ")
	cmd, ok := r.commands[name]
	if !ok {
		fmt.Fprintf(r.out, "unknown command %q, try 'help'\n", name)
		return
	}
	if err := cmd.run(ctx, strings.TrimSpace(args)); err != nil {
		fmt.Fprintf(r.out, "error: %s\n", describe(err))
	}
}

// describe turns session errors into messages for the terminal.
func describe(err error) string {
	var genErr *domain.GenerationError
	var pubErr *domain.PublishError
	switch {
	case errors.Is(err, domain.ErrNoActivePost):
		return "no post open, use 'new' or 'open'"
	case errors.Is(err, domain.ErrBusy):
		return "another request is still running"
	case errors.Is(err, editor.ErrNothingPending):
		return "nothing to accept or discard"
	case errors.As(err, &pubErr):
		return pubErr.Error()
	case errors.As(err, &genErr):
		return genErr.Error()
	default:
		return err.Error()
	}
}

func (r *repl) cmdHelp(context.Context, string) error {
	for _, name := range r.order {
		cmd := r.commands[name]
		fmt.Fprintf(r.out, "  %-28s %s\n", cmd.usage, cmd.help)
	}
	return nil
}

func (r *repl) cmdList(ctx context.Context, _ string) error {
	posts, err := r.posts.List(ctx)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		fmt.Fprintln(r.out, "no posts yet")
		return nil
	}
	for _, p := range posts {
		fmt.Fprintf(r.out, "%s  %-9s  %s  %s\n", p.ID, p.Status, p.UpdatedAt.Local().Format(time.DateTime), p.Title)
	}
	return nil
}

func (r *repl) cmdSearch(ctx context.Context, args string) error {
	result, err := r.posts.Search(ctx, args)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%d match(es) for %q\n", result.Total, result.Query)
	for _, hit := range result.Hits {
		fmt.Fprintf(r.out, "%s  %-9s  %s\n    %s\n", hit.ID, hit.Status, hit.Title, hit.Snippet)
	}
	return nil
}

func (r *repl) cmdNew(ctx context.Context, args string) error {
	title := args
	if title == "" {
		title = "Untitled"
	}
	post, err := r.session.NewPost(ctx, title)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "opened %s %q\n", post.ID, post.Title)
	return nil
}

func (r *repl) cmdOpen(ctx context.Context, args string) error {
	if args == "" {
		return errors.New("usage: open <id>")
	}
	post, err := r.posts.Get(ctx, args)
	if err != nil {
		return err
	}
	if err := r.session.Open(post); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "opened %s %q\n", post.ID, post.Title)
	return nil
}

func (r *repl) cmdTitle(_ context.Context, args string) error {
	if args == "" {
		return errors.New("usage: title <text>")
	}
	return r.session.UpdateTitle(args)
}

func (r *repl) cmdAppend(_ context.Context, args string) error {
	return r.appendBlock(doctree.Paragraph(doctree.Text(args)))
}

func (r *repl) cmdHeading(_ context.Context, args string) error {
	levelArg, text, _ := strings.Cut(args, " ")
	level, err := strconv.Atoi(levelArg)
	if err != nil || level < 1 || level > 3 || strings.TrimSpace(text) == "" {
		return errors.New("usage: heading <1-3> <text>")
	}
	return r.appendBlock(doctree.Heading(level, doctree.Text(strings.TrimSpace(text))))
}

// appendBlock adds b after the last block, or in place of a lone empty
// paragraph, and puts the caret at its end.
func (r *repl) appendBlock(b doctree.Block) error {
	post := r.session.Document()
	if post == nil {
		return domain.ErrNoActivePost
	}
	tree := post.Body
	if doctree.PlainText(tree) == "" && len(tree.Blocks) == 1 {
		tree.Blocks = nil
	}
	tree.Blocks = append(tree.Blocks, b)

	last := tree.LeafCount() - 1
	text, _ := tree.LeafText(last)
	return r.session.ApplyChange(tree, doctree.Caret(doctree.Point{Leaf: last, Offset: utf8.RuneCountInString(text)}))
}

func (r *repl) cmdReplace(_ context.Context, args string) error {
	return r.session.ApplyChange(doctree.ReplaceWholeDocument(args), doctree.DocumentStart)
}

func (r *repl) cmdSelect(_ context.Context, args string) error {
	nums, err := parseInts(args, 3)
	if err != nil {
		return errors.New("usage: select <leaf> <from> <to>")
	}
	sel := doctree.Range(doctree.Point{Leaf: nums[0], Offset: nums[1]}, doctree.Point{Leaf: nums[0], Offset: nums[2]})
	if err := r.session.SetSelection(sel); err != nil {
		return err
	}
	post := r.session.Document()
	selected, err := post.Body.SelectedText(sel)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "selected %q\n", selected)
	return nil
}

func (r *repl) cmdCaret(_ context.Context, args string) error {
	nums, err := parseInts(args, 2)
	if err != nil {
		return errors.New("usage: caret <leaf> <offset>")
	}
	return r.session.SetSelection(doctree.Caret(doctree.Point{Leaf: nums[0], Offset: nums[1]}))
}

func parseInts(args string, n int) ([]int, error) {
	fields := strings.Fields(args)
	if len(fields) != n {
		return nil, fmt.Errorf("want %d numbers", n)
	}
	nums := make([]int, n)
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		nums[i] = v
	}
	return nums, nil
}

func (r *repl) cmdShow(context.Context, string) error {
	post := r.session.Document()
	if post == nil {
		return domain.ErrNoActivePost
	}
	fmt.Fprintf(r.out, "# %s (%s)\n", post.Title, post.Status)
	for i := 0; i < post.Body.LeafCount(); i++ {
		text, _ := post.Body.LeafText(i)
		fmt.Fprintf(r.out, "[%d] %s\n", i, text)
	}
	return nil
}

func (r *repl) cmdExport(context.Context, string) error {
	post := r.session.Document()
	if post == nil {
		return domain.ErrNoActivePost
	}
	fmt.Fprintln(r.out, doctree.Markdown(post.Body))
	return nil
}

func (r *repl) cmdGenerate(ctx context.Context, args string) error {
	mode := models.GenerationMode(args)
	if err := r.session.RequestGeneration(ctx, mode); err != nil {
		return err
	}
	pending, ok := r.session.PendingResult()
	if !ok {
		// the post changed while the request was running
		return nil
	}
	fmt.Fprintf(r.out, "--- %s ---\n%s\n--- accept or discard ---\n", pending.Mode, pending.Text)
	return nil
}

func (r *repl) cmdAccept(context.Context, string) error {
	return r.session.AcceptPendingResult()
}

func (r *repl) cmdDiscard(context.Context, string) error {
	return r.session.DiscardPendingResult()
}

func (r *repl) cmdDismiss(context.Context, string) error {
	r.session.DismissGenerationError()
	return nil
}

func (r *repl) cmdSave(ctx context.Context, _ string) error {
	if err := r.session.ManualSave(ctx); err != nil {
		return err
	}
	fmt.Fprintln(r.out, "saved")
	return nil
}

func (r *repl) cmdPublish(ctx context.Context, _ string) error {
	if err := r.session.Publish(ctx); err != nil {
		return err
	}
	fmt.Fprintln(r.out, "published")
	return nil
}

func (r *repl) cmdStatus(context.Context, string) error {
	post := r.session.Document()
	if post == nil {
		fmt.Fprintln(r.out, "no post open")
		return nil
	}
	save := r.session.SaveSnapshot()
	gen := r.session.GenerationSnapshot()

	fmt.Fprintf(r.out, "post:       %s %q (%s)\n", post.ID, post.Title, post.Status)
	fmt.Fprintf(r.out, "save:       %s", save.State)
	if save.HasUnsavedChanges {
		fmt.Fprint(r.out, ", unsaved changes")
	}
	if save.LastSavedAt != nil {
		fmt.Fprintf(r.out, ", last saved %s", save.LastSavedAt.Local().Format(time.TimeOnly))
	}
	fmt.Fprintln(r.out)
	if save.Err != nil {
		fmt.Fprintf(r.out, "save error: %s\n", save.Err)
	}
	fmt.Fprintf(r.out, "words:      %d\n", save.WordCount)
	fmt.Fprintf(r.out, "generation: %s", gen.State)
	if gen.Pending != nil {
		fmt.Fprintf(r.out, ", %s result pending", gen.Pending.Mode)
	}
	fmt.Fprintln(r.out)
	if gen.Err != nil {
		fmt.Fprintf(r.out, "gen error:  %s\n", gen.Err)
	}
	return nil
}

// cmdQuit saves unsaved edits before leaving; a failed save is reported
// but does not keep the editor open.
func (r *repl) cmdQuit(ctx context.Context, _ string) error {
	r.quit = true
	if r.session.Document() == nil || !r.session.SaveSnapshot().HasUnsavedChanges {
		return nil
	}
	return r.session.ManualSave(ctx)
}
