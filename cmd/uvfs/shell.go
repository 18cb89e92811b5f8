package main

import (
	"bufio"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"uvfs/pkg/vfs"
)

// shell evaluates one command per line against a process's syscall
// surface. It keeps a textual working directory for the prompt only;
// resolution always goes through the namespace.
type shell struct {
	proc *vfs.Proc
	out  io.Writer
	cwd  string
}

func newShell(proc *vfs.Proc, out io.Writer) *shell {
	return &shell{proc: proc, out: out, cwd: "/"}
}

func (s *shell) repl(in io.Reader) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprintf(s.out, "uvfs:%s$ ", s.cwd)
		if !sc.Scan() {
			fmt.Fprintln(s.out)
			return sc.Err()
		}
		quit, err := s.eval(sc.Text())
		if err != nil {
			fmt.Fprintf(s.out, "error: %s (%d)\n", err, vfs.Errno(err))
		}
		if quit {
			return nil
		}
	}
}

// runAll executes every line of a script, stopping at the first error.
func (s *shell) runAll(in io.Reader) error {
	sc := bufio.NewScanner(in)
	line := 0
	for sc.Scan() {
		line++
		quit, err := s.eval(sc.Text())
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if quit {
			return nil
		}
	}
	return sc.Err()
}

func (s *shell) eval(line string) (quit bool, err error) {
	args := strings.Fields(line)
	if len(args) == 0 || strings.HasPrefix(args[0], "#") {
		return false, nil
	}
	cmd, args := args[0], args[1:]

	switch cmd {
	case "exit", "quit":
		return true, nil
	case "help":
		s.help()
		return false, nil
	case "pwd":
		fmt.Fprintln(s.out, s.cwd)
		return false, nil
	}

	return false, s.run(cmd, args)
}

func (s *shell) run(cmd string, args []string) error {
	switch cmd {
	case "cd":
		if len(args) != 1 {
			return usage("cd path")
		}
		if err := s.proc.Chdir(args[0]); err != nil {
			return err
		}
		if path.IsAbs(args[0]) {
			s.cwd = path.Clean(args[0])
		} else {
			s.cwd = path.Join(s.cwd, args[0])
		}
		return nil

	case "ls":
		target := "."
		if len(args) == 1 {
			target = args[0]
		} else if len(args) > 1 {
			return usage("ls [path]")
		}
		return s.list(target)

	case "mkdir":
		if len(args) != 1 {
			return usage("mkdir path")
		}
		return s.proc.Mkdir(args[0])

	case "rmdir":
		if len(args) != 1 {
			return usage("rmdir path")
		}
		return s.proc.Rmdir(args[0])

	case "rm":
		if len(args) != 1 {
			return usage("rm path")
		}
		return s.proc.Unlink(args[0])

	case "ln":
		if len(args) != 2 {
			return usage("ln from to")
		}
		return s.proc.Link(args[0], args[1])

	case "mv":
		if len(args) != 2 {
			return usage("mv from to")
		}
		return s.proc.Rename(args[0], args[1])

	case "touch":
		if len(args) != 1 {
			return usage("touch path")
		}
		fd, err := s.proc.Open(args[0], vfs.O_RDONLY|vfs.O_CREAT)
		if err != nil {
			return err
		}
		return s.proc.Close(fd)

	case "mknod":
		if len(args) != 3 {
			return usage("mknod path c|b devid")
		}
		var mode vfs.Mode
		switch args[1] {
		case "c":
			mode = vfs.ModeChar
		case "b":
			mode = vfs.ModeBlock
		default:
			return usage("mknod path c|b devid")
		}
		dev, err := strconv.ParseUint(args[2], 10, 32)
		if err != nil {
			return usage("mknod path c|b devid")
		}
		return s.proc.Mknod(args[0], mode, vfs.DevID(dev))

	case "stat":
		if len(args) != 1 {
			return usage("stat path")
		}
		var st vfs.Stat
		if err := s.proc.Stat(args[0], &st); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "ino=%d mode=%s nlink=%d size=%d rdev=%d\n",
			st.Ino, st.Mode, st.Nlink, st.Size, st.Rdev)
		return nil

	case "cat":
		if len(args) != 1 {
			return usage("cat path")
		}
		return s.cat(args[0])

	case "write":
		if len(args) < 1 {
			return usage("write path [text...]")
		}
		return s.spill(args[0], strings.Join(args[1:], " "), vfs.O_WRONLY|vfs.O_CREAT|vfs.O_TRUNC)

	case "append":
		if len(args) < 1 {
			return usage("append path [text...]")
		}
		return s.spill(args[0], strings.Join(args[1:], " "), vfs.O_WRONLY|vfs.O_CREAT|vfs.O_APPEND)

	case "open":
		if len(args) < 1 || len(args) > 2 {
			return usage("open path [rwactx]")
		}
		flags := vfs.O_RDONLY
		if len(args) == 2 {
			parsed, err := parseFlags(args[1])
			if err != nil {
				return err
			}
			flags = parsed
		}
		fd, err := s.proc.Open(args[0], flags)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "fd %d\n", fd)
		return nil

	case "close":
		fd, err := atoi(args, 0, "close fd")
		if err != nil {
			return err
		}
		return s.proc.Close(fd)

	case "dup":
		fd, err := atoi(args, 0, "dup fd")
		if err != nil {
			return err
		}
		nfd, err := s.proc.Dup(fd)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "fd %d\n", nfd)
		return nil

	case "dup2":
		if len(args) != 2 {
			return usage("dup2 oldfd newfd")
		}
		ofd, err := atoi(args, 0, "dup2 oldfd newfd")
		if err != nil {
			return err
		}
		nfd, err := atoi(args, 1, "dup2 oldfd newfd")
		if err != nil {
			return err
		}
		if _, err := s.proc.Dup2(ofd, nfd); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "fd %d\n", nfd)
		return nil

	case "seek":
		if len(args) != 3 {
			return usage("seek fd offset set|cur|end")
		}
		fd, err := atoi(args, 0, "seek fd offset set|cur|end")
		if err != nil {
			return err
		}
		off, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return usage("seek fd offset set|cur|end")
		}
		var whence int
		switch args[2] {
		case "set":
			whence = vfs.SeekSet
		case "cur":
			whence = vfs.SeekCur
		case "end":
			whence = vfs.SeekEnd
		default:
			return usage("seek fd offset set|cur|end")
		}
		pos, err := s.proc.Lseek(fd, off, whence)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "pos %d\n", pos)
		return nil

	case "read":
		if len(args) != 2 {
			return usage("read fd nbytes")
		}
		fd, err := atoi(args, 0, "read fd nbytes")
		if err != nil {
			return err
		}
		n, err := atoi(args, 1, "read fd nbytes")
		if err != nil || n < 0 {
			return usage("read fd nbytes")
		}
		buf := make([]byte, n)
		got, err := s.proc.Read(fd, buf)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%d bytes: %q\n", got, buf[:got])
		return nil
	}

	return fmt.Errorf("unknown command %q (try help)", cmd)
}

func (s *shell) list(target string) error {
	fd, err := s.proc.Open(target, vfs.O_RDONLY)
	if err != nil {
		return err
	}
	defer s.proc.Close(fd)

	var d vfs.Dirent
	for {
		n, err := s.proc.Getdent(fd, &d)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		fmt.Fprintf(s.out, "%8d  %s\n", d.Ino, d.Name)
	}
}

func (s *shell) cat(target string) error {
	fd, err := s.proc.Open(target, vfs.O_RDONLY)
	if err != nil {
		return err
	}
	defer s.proc.Close(fd)

	buf := make([]byte, 4096)
	for {
		n, err := s.proc.Read(fd, buf)
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Fprintln(s.out)
			return nil
		}
		s.out.Write(buf[:n])
	}
}

func (s *shell) spill(target, text string, flags vfs.OpenFlags) error {
	fd, err := s.proc.Open(target, flags)
	if err != nil {
		return err
	}
	if text != "" {
		if _, err := s.proc.Write(fd, []byte(text)); err != nil {
			s.proc.Close(fd)
			return err
		}
	}
	return s.proc.Close(fd)
}

func (s *shell) help() {
	fmt.Fprint(s.out, `namespace:  ls [p] | cd p | pwd | mkdir p | rmdir p | rm p | ln a b | mv a b
            touch p | mknod p c|b dev | stat p | cat p | write p text | append p text
descriptors: open p [rwactx] | close fd | dup fd | dup2 o n | seek fd off set|cur|end | read fd n
other:      help | exit
`)
}

// parseFlags maps a letter string onto open flags: r/w read/write
// access (both for rw), a append, c create, t truncate, x exclusive.
func parseFlags(spec string) (vfs.OpenFlags, error) {
	var read, write bool
	var extra vfs.OpenFlags
	for _, c := range spec {
		switch c {
		case 'r':
			read = true
		case 'w':
			write = true
		case 'a':
			extra |= vfs.O_APPEND
			write = true
		case 'c':
			extra |= vfs.O_CREAT
		case 't':
			extra |= vfs.O_TRUNC
		case 'x':
			extra |= vfs.O_EXCL
		default:
			return 0, fmt.Errorf("unknown open flag %q", string(c))
		}
	}
	switch {
	case read && write:
		return vfs.O_RDWR | extra, nil
	case write:
		return vfs.O_WRONLY | extra, nil
	default:
		return vfs.O_RDONLY | extra, nil
	}
}

func atoi(args []string, i int, use string) (int, error) {
	if i >= len(args) {
		return 0, usage(use)
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, usage(use)
	}
	return n, nil
}

func usage(u string) error {
	return fmt.Errorf("usage: %s", u)
}
