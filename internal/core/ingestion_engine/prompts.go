package ingestion_engine

// --- File Summarizer Prompt ---
const SummaryPrompt = `Task: Document Summary
Instruction: identify key information from the sampled content below:
  - Document type and purpose (report, agreement, article, ...).
  - Entities prominently mentioned: organizations, people, locations.
  - Main topics or issues addressed.
  - Timeframe: specific dates or periods covered.
  - Important details: key points, findings, conclusions.
  - Legal, compliance or regulatory aspects, if applicable.
  - Broader implications or intended outcomes.

The summary must capture the essential elements needed for accurate
retrieval. Following is sampled content from a document. Provide a
summarization as instructed.`

// --- Image Descriptor Prompt ---
const DescribePrompt = `Task: Image-to-Text Conversion

Objective: transform the provided image of a document into text form
without information loss.

Instructions:
  Detect if the image carries no information of interest:
    - if the image is a simple shape (line, box), return 'a shape' then terminate.
    - if the image is a logo, return 'a logo' then terminate.
  Otherwise:
    Transcribe all text from the image as accurately as possible; pay
    attention to numbers, dates and specific terms. Transcribe tables as
    valid Markdown tables with a consistent column count.
    Note the organization or company involved, specific terms, conditions
    and numerical data, and any dates, names or signatures that indicate
    the document's purpose or validity period.
    Provide the transcribed text in a clear and organized format.`

// descriptionContextFormat appends the document summary as context for
// per-image description calls.
const descriptionContextFormat = "For context, the image above is extracted from a document having description as follows: %s"
