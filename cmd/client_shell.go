package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/haierkeys/lww-note-sync/internal/client"
	"github.com/haierkeys/lww-note-sync/internal/domain"
)

const shellHelp = `commands:
  list | ls              list notes
  add                    create a note (prompts for title and content)
  edit <id>              edit a note, server updates wait until you finish
  delete | rm <id>       delete a note
  sync                   sync now
  status                 connectivity and local state
  help                   this help
  quit | exit            leave`

// readLines 逐行读取输入，EOF 时关闭通道
func readLines(r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			ch <- sc.Text()
		}
	}()
	return ch
}

type shell struct {
	client *client.Client
	in     <-chan string
	out    io.Writer
}

func newShell(c *client.Client, in <-chan string, out io.Writer) *shell {
	return &shell{client: c, in: in, out: out}
}

var errShellEOF = errors.New("input closed")

// prompt 打印提示并等待一行输入
func (s *shell) prompt(ctx context.Context, p string) (string, error) {
	fmt.Fprint(s.out, p)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-s.in:
		if !ok {
			return "", errShellEOF
		}
		return strings.TrimSpace(line), nil
	}
}

func (s *shell) run(ctx context.Context) error {
	fmt.Fprintf(s.out, "note client %s, type help for commands\n", s.client.ID())
	for {
		line, err := s.prompt(ctx, fmt.Sprintf("[%s]> ", s.client.State()))
		if errors.Is(err, errShellEOF) {
			return nil
		}
		if err != nil {
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		var cmdErr error
		switch fields[0] {
		case "list", "ls":
			printNotes(s.out, s.client.List())
		case "add":
			cmdErr = s.add(ctx)
		case "edit":
			if len(fields) < 2 {
				fmt.Fprintln(s.out, "usage: edit <id>")
				continue
			}
			cmdErr = s.edit(ctx, fields[1])
		case "delete", "rm":
			if len(fields) < 2 {
				fmt.Fprintln(s.out, "usage: delete <id>")
				continue
			}
			if cmdErr = s.client.Delete(ctx, fields[1]); cmdErr == nil {
				fmt.Fprintf(s.out, "deleted %s\n", fields[1])
			}
		case "sync":
			reportSync(s.out, s.client.SyncNow(ctx))
		case "status":
			s.status()
		case "help", "?":
			fmt.Fprintln(s.out, shellHelp)
		case "quit", "exit":
			return nil
		default:
			fmt.Fprintf(s.out, "unknown command %q, type help\n", fields[0])
		}

		if cmdErr != nil {
			if errors.Is(cmdErr, errShellEOF) {
				return nil
			}
			if errors.Is(cmdErr, context.Canceled) {
				return cmdErr
			}
			fmt.Fprintf(s.out, "error: %v\n", cmdErr)
		}
	}
}

func (s *shell) add(ctx context.Context) error {
	title, err := s.prompt(ctx, "title> ")
	if err != nil {
		return err
	}
	content, err := s.prompt(ctx, "content> ")
	if err != nil {
		return err
	}
	n, err := s.client.Create(ctx, title, content)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "created %s\n", n.ID)
	return nil
}

// edit 在编辑期间服务端快照排队，结束编辑后再合并
func (s *shell) edit(ctx context.Context, id string) error {
	if err := s.client.BeginEdit(id); err != nil {
		return err
	}
	defer func() {
		if err := s.client.EndEdit(context.WithoutCancel(ctx)); err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}()

	cur, ok := s.client.Get(id)
	if !ok {
		return &domain.NotFoundError{ID: id}
	}
	title, err := s.prompt(ctx, fmt.Sprintf("title [%s]> ", cur.Title))
	if err != nil {
		return err
	}
	content, err := s.prompt(ctx, fmt.Sprintf("content [%s]> ", abbreviate(cur.Content, 30)))
	if err != nil {
		return err
	}
	if title == "" {
		title = cur.Title
	}
	if content == "" {
		content = cur.Content
	}
	if title == cur.Title && content == cur.Content {
		fmt.Fprintln(s.out, "unchanged")
		return nil
	}

	n, err := s.client.Update(ctx, id, title, content)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "updated %s\n", n.ID)
	return nil
}

func (s *shell) status() {
	st := s.client.Store()
	fmt.Fprintf(s.out, "state: %s\nnotes: %d\npending deletes: %d\nsync cycles: %d\n",
		s.client.State(), len(st.List()), len(st.Tombstones()), s.client.Syncer().Cycles())
	if id, ok := st.Editing(); ok {
		fmt.Fprintf(s.out, "editing: %s\n", id)
	}
}
