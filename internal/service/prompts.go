package service

const thinkSystemPrompt = "You are a helpful AI assistant. Always respond in plain text without markdown formatting. You can form and express opinions based on facts."

// thinkPrompt takes the agent facts, world facts, existing opinions (each a
// JSON array) and the question.
const thinkPrompt = `You are an AI assistant answering a question using retrieved facts given as JSON arrays.

AGENT IDENTITY (what the agent has done):
%s

WORLD FACTS (general knowledge):
%s

YOUR EXISTING OPINIONS (perspectives you have formed):
%s

QUESTION: %s

Each fact may carry:
- text: the fact itself
- context: extra context for the fact
- event_date: when it happened
- score: how relevant it was judged to be

Answer helpfully and accurately using only the facts above. Stay consistent with your existing opinions. If the facts are not enough to answer the question, say so clearly. Do not use markdown; reply in plain text only.

If you form any new opinions while thinking about this question, state them clearly in your answer.`

const opinionSystemPrompt = "You extract opinions and perspectives from text."

// opinionExtractionPrompt takes the question and the answer.
const opinionExtractionPrompt = `Extract any NEW opinions or perspectives formed while answering the question below.

ORIGINAL QUESTION:
%s

ANSWER PROVIDED:
%s

An opinion is a judgment, viewpoint or conclusion that goes beyond stating facts.

Do NOT extract:
- "I don't have enough information"
- "The facts don't contain information about X"
- "I cannot answer because..."
- acknowledgments or meta-statements about the question itself
- restatements of facts

Only extract real judgments about substantive topics. For each one give the opinion, the reasons or facts that support it, and a confidence between 0.0 and 1.0.

If the answer expresses no genuine opinion (for example it only says it does not know), return an empty list.`
