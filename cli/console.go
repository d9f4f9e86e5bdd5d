package cli

const banner = `
   ____ ____   ___  ____  _____ ______   __      ____   ___
  / ___/ ___| / _ \|  _ \| ____/ ___\ \ / /____ / ___| / _ \
 | |   \___ \| | | | |_) |  _| \___ \\ V /_____| |  _ | | | |
 | |___ ___) | |_| |  __/| |___ ___) || |      | |_| || |_| |
  \____|____/ \___/|_|   |_____|____/ |_|       \____(_)___/

Type 'initialize' to load config.txt, or 'exit' to quit.
`

// Run drives the operator command loop until Dispatch reports the session
// should end, grounded on original_source/menu.cpp's menuSession: print a
// prompt, read a line, dispatch it, repeat.
func (s *Session) Run() {
	s.printf("%s", banner)
	for {
		s.printf("> ")
		if !s.in.Scan() {
			return
		}
		if !s.Dispatch(s.in.Text()) {
			return
		}
	}
}
