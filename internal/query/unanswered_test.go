package query

import "testing"

func TestComputeUnanswered_MatchedPair(t *testing.T) {
	rows := []Row{
		{RowID: 0, TsNS: 1_000_000_000, Dir: 1, S: 1, F: 1, SysBytes: 42, WBit: 1},
		{RowID: 1, TsNS: 1_500_000_000, Dir: -1, S: 1, F: 2, SysBytes: 42, WBit: 0},
	}
	got := ComputeUnanswered(rows)
	if got[0] {
		t.Error("expected row 0 to be answered")
	}
}

func TestComputeUnanswered_OutsideWindow(t *testing.T) {
	rows := []Row{
		{RowID: 0, TsNS: 0, Dir: 1, S: 1, F: 1, SysBytes: 42, WBit: 1},
		{RowID: 1, TsNS: 10_000_000_000, Dir: -1, S: 1, F: 2, SysBytes: 42, WBit: 0},
	}
	got := ComputeUnanswered(rows)
	if !got[0] {
		t.Error("expected row 0 to be unanswered: reply is outside the +-5s window")
	}
}

func TestComputeUnanswered_ExactlyOnWindowBoundaryIsAnswered(t *testing.T) {
	rows := []Row{
		{RowID: 0, TsNS: 0, Dir: 1, S: 1, F: 1, SysBytes: 42, WBit: 1},
		{RowID: 1, TsNS: unansweredWindowNS, Dir: -1, S: 1, F: 2, SysBytes: 42, WBit: 0},
	}
	got := ComputeUnanswered(rows)
	if got[0] {
		t.Error("expected row 0 to be answered: reply lands exactly on the +-5s boundary, which is inclusive")
	}
}

func TestComputeUnanswered_NoReply(t *testing.T) {
	rows := []Row{
		{RowID: 0, TsNS: 0, Dir: 1, S: 1, F: 1, SysBytes: 42, WBit: 1},
	}
	got := ComputeUnanswered(rows)
	if !got[0] {
		t.Error("expected row 0 to be unanswered: no reply exists at all")
	}
}

func TestComputeUnanswered_NonWaitBitNeverFlagged(t *testing.T) {
	rows := []Row{
		{RowID: 0, TsNS: 0, Dir: 1, S: 1, F: 1, SysBytes: 42, WBit: 0},
	}
	got := ComputeUnanswered(rows)
	if got[0] {
		t.Error("expected non-wait-bit row to never be flagged unanswered")
	}
}

func TestComputeUnanswered_FOverflow(t *testing.T) {
	rows := []Row{
		{RowID: 0, TsNS: 0, Dir: 1, S: 1, F: 255, SysBytes: 1, WBit: 1},
	}
	got := ComputeUnanswered(rows)
	if !got[0] {
		t.Error("expected row with F=255 to be unanswered since f+1 overflows")
	}
}

func TestComputeUnanswered_WrongDirectionDoesNotMatch(t *testing.T) {
	rows := []Row{
		{RowID: 0, TsNS: 0, Dir: 1, S: 1, F: 1, SysBytes: 42, WBit: 1},
		// Same direction as the primary; a real reply must be -Dir.
		{RowID: 1, TsNS: 100, Dir: 1, S: 1, F: 2, SysBytes: 42, WBit: 0},
	}
	got := ComputeUnanswered(rows)
	if !got[0] {
		t.Error("expected row 0 to be unanswered: candidate reply travels the wrong direction")
	}
}
