// Package policy decides whether candidate services may join a visible group.
//
// Evaluation is read-only. Each candidate not already used by the group is
// checked in three independent stages:
//
//  1. Constraint fit: every constraint flag explicitly true in the group's
//     effective constraints must be supported by the candidate.
//  2. Rate: when the group has a primary service (the first used service),
//     the candidate's rate must satisfy the configured relation to it.
//  3. Dynamic rules: compiled Rules are evaluated over the used services
//     plus the candidate. Failing error-severity rules fail the candidate;
//     failing warning-severity rules are reported only.
//
// A Verdict is OK when all three stages pass.
package policy
