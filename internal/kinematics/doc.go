// Package kinematics derives movement metrics from a trajectory table:
// step distances, spike-corrected speed, turning angles and chunked
// angular velocity, occupancy of a region around a configured centre, and
// the meandering index. Every function is pure; an AnalysisConfig carries
// all thresholds.
package kinematics
