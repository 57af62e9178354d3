package models

import "time"

// AttendanceSummary counts locked attendance entries for a student.
type AttendanceSummary struct {
	Present int     `db:"present" json:"present"`
	Absent  int     `db:"absent" json:"absent"`
	Late    int     `db:"late" json:"late"`
	Excused int     `db:"excused" json:"excused"`
	Total   int     `db:"total" json:"total"`
	Percent float64 `json:"percent"`
}

// StudentAttendanceReport is the per-student attendance view.
type StudentAttendanceReport struct {
	StudentID   string                 `json:"student_id"`
	StudentName string                 `json:"student_name"`
	Summary     AttendanceSummary      `json:"summary"`
	History     []StudentAttendanceRow `json:"history"`
}

// ClassAttendanceRow summarises one student within a class report.
type ClassAttendanceRow struct {
	StudentID   string `db:"student_id" json:"student_id"`
	StudentName string `db:"student_name" json:"student_name"`
	AttendanceSummary
}

// ClassAttendanceReport is the per-class attendance rollup.
type ClassAttendanceReport struct {
	ClassID     string               `json:"class_id"`
	ClassName   string               `json:"class_name"`
	GeneratedAt time.Time            `json:"generated_at"`
	Rows        []ClassAttendanceRow `json:"rows"`
}

// GradeReportRow aggregates assignment and exam performance for one
// student in a class.
type GradeReportRow struct {
	StudentID         string   `db:"student_id" json:"student_id"`
	StudentName       string   `db:"student_name" json:"student_name"`
	AssignmentAverage *float64 `db:"assignment_average" json:"assignment_average,omitempty"`
	ExamAverage       *float64 `db:"exam_average" json:"exam_average,omitempty"`
	SubmissionCount   int      `db:"submission_count" json:"submission_count"`
	MarkCount         int      `db:"mark_count" json:"mark_count"`
}

// ClassGradeReport is the per-class grade rollup.
type ClassGradeReport struct {
	ClassID     string           `json:"class_id"`
	ClassName   string           `json:"class_name"`
	GeneratedAt time.Time        `json:"generated_at"`
	Rows        []GradeReportRow `json:"rows"`
}
