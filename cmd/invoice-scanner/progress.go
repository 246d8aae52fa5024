package main

import (
	"fmt"
	"sync"

	"github.com/pterm/pterm"

	"github.com/joseph-ayodele/invoice-scanner/internal/events"
	"github.com/joseph-ayodele/invoice-scanner/internal/pipeline"
)

// terminalSink prints progress from its own goroutine so a slow terminal never
// holds up the pipeline.
type terminalSink struct {
	ch   *events.Channel
	wg   sync.WaitGroup
	once sync.Once
}

func newTerminalSink() *terminalSink {
	s := &terminalSink{ch: events.NewChannel(256)}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for ev := range s.ch.Events() {
			printEvent(ev)
		}
	}()
	return s
}

func (s *terminalSink) Emit(ev events.Event) { s.ch.Emit(ev) }

// Close flushes what is buffered and stops the printer.
func (s *terminalSink) Close() {
	s.once.Do(func() {
		s.ch.Close()
		s.wg.Wait()
		if n := s.ch.Dropped(); n > 0 {
			pterm.Warning.Printfln("%d progress messages were dropped", n)
		}
	})
}

func printEvent(ev events.Event) {
	switch ev.Kind {
	case events.KindRunStart, events.KindLogUpdate:
		pterm.Info.Println(ev.Message)
	case events.KindFileStart:
		pterm.Printfln("%s %s", pterm.LightCyan(fmt.Sprintf("[%d/%d]", ev.Index, ev.Total)), ev.Message)
	case events.KindTextExtraction, events.KindFieldExtraction, events.KindRelocation:
		pterm.Printfln("  %s", ev.Message)
	case events.KindFileSuccess:
		pterm.Success.Println(ev.Message)
	case events.KindFileError:
		pterm.Error.Printfln("%s: %s", ev.FileName, ev.Message)
	case events.KindRunComplete:
		pterm.Success.Println(ev.Message)
	}
}

func renderResults(res pipeline.Result) error {
	if len(res.Outcomes) == 0 {
		pterm.Info.Println("No PDF files found")
		return nil
	}
	data := pterm.TableData{{"#", "Original File", "Result", "Renamed"}}
	for _, o := range res.Outcomes {
		result, renamed := o.ResolvedName, ""
		if !o.Succeeded() {
			result = pterm.Red(o.Error)
		} else if o.WasRenamed {
			renamed = "yes"
		}
		data = append(data, []string{fmt.Sprint(o.Index), o.OriginalName, result, renamed})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}
	pterm.Printfln("%s files processed successfully", pterm.Green(res.Tally()))
	return nil
}
